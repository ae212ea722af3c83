// Package domain contains the core business entities, value objects, and
// domain logic of the application. Tasks, their closed status and priority
// enumerations, listing filters and aggregate statistics live here,
// independent of any specific infrastructure or delivery mechanism.
package domain
