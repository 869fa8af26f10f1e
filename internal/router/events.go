package router

import (
	"time"

	"github.com/leeHildebrandtSE/servicesync-backend/internal/domain"
)

// Inbound event names.
const (
	EventRegister         = "register"
	EventSessionStart     = "session-start"
	EventLocationUpdate   = "location-update"
	EventNurseAlert       = "nurse-alert"
	EventAcknowledgeAlert = "acknowledge-alert"
	EventQRScan           = "qr-scan"
	EventServingUpdate    = "serving-update"
	EventSessionComplete  = "session-complete"
	EventEmergency        = "emergency"
	EventStatusQuery      = "status-query"
)

// Outbound event names.
const (
	EventConnected           = "connected"
	EventRegistered          = "registered"
	EventSessionStarted      = "session-started"
	EventHostessLocation     = "hostess-location"
	EventNurseAlertOut       = "nurse-alert"
	EventAlertSent           = "alert-sent"
	EventAlertError          = "alert-error"
	EventNurseResponse       = "nurse-response"
	EventQRScanned           = "qr-scanned"
	EventServingProgress     = "serving-progress"
	EventSessionCompleted    = "session-completed"
	EventEmergencyAlert      = "emergency-alert"
	EventSystemStatus        = "system-status"
	EventHostessDisconnected = "hostess-disconnected"
	EventSessionError        = "session-error"
)

// --- Inbound payloads ---

type registerPayload struct {
	UserID     string      `json:"userId"`
	UserType   domain.Role `json:"userType"`
	EmployeeID string      `json:"employeeId"`
	WardID     string      `json:"wardId"`
	HospitalID string      `json:"hospitalId"`
}

type sessionStartPayload struct {
	SessionID  string `json:"sessionId"`
	HostessID  string `json:"hostessId"`
	WardID     string `json:"wardId"`
	HospitalID string `json:"hospitalId"`
	MealCount  int    `json:"mealCount"`
	MealType   string `json:"mealType"`
}

type locationUpdatePayload struct {
	SessionID   string     `json:"sessionId"`
	Location    string     `json:"location"`
	Timestamp   *time.Time `json:"timestamp"`
	Coordinates any        `json:"coordinates,omitempty"`
}

type nurseAlertPayload struct {
	SessionID string `json:"sessionId"`
	WardID    string `json:"wardId"`
	MealType  string `json:"mealType"`
	MealCount int    `json:"mealCount"`
	Urgency   string `json:"urgency"`
}

type acknowledgeAlertPayload struct {
	AlertID      string `json:"alertId"`
	SessionID    string `json:"sessionId"`
	NurseID      string `json:"nurseId"`
	ResponseTime string `json:"responseTime"`
}

type qrScanPayload struct {
	SessionID string     `json:"sessionId"`
	QRCode    string     `json:"qrCode"`
	Location  string     `json:"location"`
	Timestamp *time.Time `json:"timestamp"`
}

type servingUpdatePayload struct {
	SessionID      string `json:"sessionId"`
	MealsServed    int    `json:"mealsServed"`
	TotalMeals     int    `json:"totalMeals"`
	CurrentPatient string `json:"currentPatient"`
}

type sessionCompletePayload struct {
	SessionID   string     `json:"sessionId"`
	CompletedAt *time.Time `json:"completedAt"`
	Summary     string     `json:"summary"`
}

type emergencyPayload struct {
	SessionID   string `json:"sessionId"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// --- Outbound payloads ---

type registeredPayload struct {
	Success   bool           `json:"success"`
	UserType  domain.Role    `json:"userType"`
	Groups    []domain.Group `json:"groups"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
}

type sessionStartedPayload struct {
	SessionID string    `json:"sessionId"`
	HostessID string    `json:"hostessId"`
	WardID    string    `json:"wardId"`
	MealCount int       `json:"mealCount,omitempty"`
	StartedAt time.Time `json:"startTime"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type hostessLocationPayload struct {
	SessionID   string    `json:"sessionId"`
	HostessID   string    `json:"hostessId,omitempty"`
	Location    string    `json:"location"`
	Coordinates any       `json:"coordinates,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type nurseAlertOutPayload struct {
	domain.Alert
	HostessID string    `json:"hostessId"`
	Timestamp time.Time `json:"timestamp"`
}

type alertSentPayload struct {
	AlertID   string    `json:"alertId"`
	SentAt    time.Time `json:"sentAt"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type nurseResponsePayload struct {
	SessionID   string    `json:"sessionId"`
	NurseID     string    `json:"nurseId"`
	AlertID     string    `json:"alertId,omitempty"`
	RespondedAt time.Time `json:"responseTime"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type qrScannedPayload struct {
	SessionID string    `json:"sessionId"`
	HostessID string    `json:"hostessId"`
	QRCode    string    `json:"qrCode"`
	Location  string    `json:"location"`
	ScannedAt time.Time `json:"scannedAt"`
	Timestamp time.Time `json:"timestamp"`
}

type servingProgressPayload struct {
	SessionID      string    `json:"sessionId"`
	HostessID      string    `json:"hostessId,omitempty"`
	MealsServed    int       `json:"mealsServed"`
	TotalMeals     int       `json:"totalMeals"`
	Progress       int       `json:"progress"`
	CurrentPatient string    `json:"currentPatient,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type sessionCompletedPayload struct {
	SessionID   string    `json:"sessionId"`
	HostessID   string    `json:"hostessId,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
	Summary     string    `json:"summary,omitempty"`
	DurationMs  int64     `json:"duration"`
	Timestamp   time.Time `json:"timestamp"`
}

type emergencyAlertPayload struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId,omitempty"`
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

type hostessDisconnectedPayload struct {
	SessionID      string    `json:"sessionId"`
	HostessID      string    `json:"hostessId"`
	DisconnectedAt time.Time `json:"disconnectedAt"`
	Reason         string    `json:"reason,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type errorPayload struct {
	Message   string    `json:"message"`
	SessionID string    `json:"sessionId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
