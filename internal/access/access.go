// Package access decides who besides the owner may read a registration.
package access

import "incorpapi/internal/model"

// CanRead reports whether requester may read reg. The owner always may; anyone
// else needs an approved share for their email. Pending and rejected shares never
// grant access.
func CanRead(reg *model.Registration, requester model.Requester) bool {
	if reg == nil {
		return false
	}
	if requester.UserID != "" && requester.UserID == reg.OwnerUserID {
		return true
	}
	return reg.SharedWithEmails.Approved(requester.Email)
}

// CanWrite reports whether requester may patch reg outside of admin review.
// Shares are read-only, so only the owner qualifies.
func CanWrite(reg *model.Registration, requester model.Requester) bool {
	return reg != nil && requester.UserID != "" && requester.UserID == reg.OwnerUserID
}
