package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"incorpapi/internal/model"
)

func TestCanRead(t *testing.T) {
	tests := []struct {
		name      string
		owner     string
		shared    model.SharedAccess
		requester model.Requester
		want      bool
	}{
		{
			name:      "owner",
			owner:     "owner-1",
			requester: model.Requester{UserID: "owner-1"},
			want:      true,
		},
		{
			name:      "stranger",
			requester: model.Requester{UserID: "user-2", Email: "someone@example.com"},
			want:      false,
		},
		{
			name:      "pending share",
			shared:    model.NewApprovalList(model.SharedEntry{Email: "friend@example.com", Status: model.SharePending}),
			requester: model.Requester{UserID: "user-2", Email: "friend@example.com"},
			want:      false,
		},
		{
			name:      "approved share",
			shared:    model.NewApprovalList(model.SharedEntry{Email: "friend@example.com", Status: model.ShareApproved}),
			requester: model.Requester{UserID: "user-2", Email: "friend@example.com"},
			want:      true,
		},
		{
			name:      "rejected share",
			shared:    model.NewApprovalList(model.SharedEntry{Email: "friend@example.com", Status: model.ShareRejected}),
			requester: model.Requester{UserID: "user-2", Email: "friend@example.com"},
			want:      false,
		},
		{
			name: "mixed case stored email",
			shared: model.SharedAccess{Kind: model.ApprovalList, Entries: []model.SharedEntry{
				{Email: "Friend@Example.COM", Status: model.ShareApproved},
			}},
			requester: model.Requester{Email: "friend@example.com"},
			want:      true,
		},
		{
			name:      "legacy list is approved",
			shared:    model.NewLegacyList("friend@example.com"),
			requester: model.Requester{Email: "FRIEND@example.com"},
			want:      true,
		},
		{
			name:      "empty requester never matches empty owner",
			requester: model.Requester{},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &model.Registration{ID: "r1", OwnerUserID: tt.owner, SharedWithEmails: tt.shared}
			assert.Equal(t, tt.want, CanRead(reg, tt.requester))
		})
	}
}

func TestCanRead_NilRegistration(t *testing.T) {
	assert.False(t, CanRead(nil, model.Requester{UserID: "u"}))
}

func TestCanWrite(t *testing.T) {
	reg := &model.Registration{
		ID:               "r1",
		OwnerUserID:      "user-1",
		SharedWithEmails: model.NewLegacyList("friend@example.com"),
	}

	assert.True(t, CanWrite(reg, model.Requester{UserID: "user-1"}))
	assert.False(t, CanWrite(reg, model.Requester{UserID: "user-2", Email: "friend@example.com"}))
	assert.False(t, CanWrite(&model.Registration{}, model.Requester{}))
	assert.False(t, CanWrite(nil, model.Requester{UserID: "user-1"}))
}
