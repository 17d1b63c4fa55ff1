package model

import "github.com/google/uuid"

// Role is the closed set of account roles supplied by the identity provider.
type Role string

const (
	RoleSender Role = "Sender"
	RoleDriver Role = "Driver"
	RoleBoth   Role = "Both"
)

// Capability is what a principal is allowed to do, independent of how the
// identity provider spells its roles.
type Capability string

const (
	CapabilitySend  Capability = "send"
	CapabilityDrive Capability = "drive"
)

// Principal is the authenticated caller as asserted by the identity provider.
// The service trusts these fields as given.
type Principal struct {
	ID       uuid.UUID
	Role     Role
	Verified bool
}

// HasCapability replaces ad hoc role string comparisons with one predicate.
func (p Principal) HasCapability(c Capability) bool {
	switch c {
	case CapabilitySend:
		return p.Role == RoleSender || p.Role == RoleBoth
	case CapabilityDrive:
		return p.Role == RoleDriver || p.Role == RoleBoth
	}
	return false
}

// DriverProfile is the slice of the verification subsystem's state this
// service reads: whether the driver may operate and how they get paid.
type DriverProfile struct {
	UserID             uuid.UUID
	IsDriverVerified   bool
	EasyPaisaPhone     string
	HasApprovedVehicle bool
}
