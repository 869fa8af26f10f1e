// Package domain holds the core types and interfaces of the realtime
// meal-delivery coordinator. It has no dependencies on other internal
// packages; everything else depends on it.
package domain
