package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	apperrors "campus_chat/pkg/errors"
)

func TestConversationKey_Symmetric(t *testing.T) {
	for i := 0; i < 50; i++ {
		a, b := uuid.New(), uuid.New()
		assert.Equal(t, ConversationKey(a, b), ConversationKey(b, a))
	}

	a := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	assert.Equal(t, b.String()+"_"+a.String(), ConversationKey(a, b))
}

func TestChat_VisibleTo(t *testing.T) {
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	course := uuid.New()
	otherCourse := uuid.New()

	direct := NewDirectChat(alice, bob)
	courseChat := &Chat{Kind: ChatKindCourse, ScopeCourseID: &course, AdminID: &carol}
	roleRoom := &Chat{Kind: ChatKindRoleRoom, Name: "Staff", AllowedRoles: []string{RoleStaff, RoleAdmin}}

	tests := []struct {
		name    string
		chat    *Chat
		user    uuid.UUID
		role    string
		courses []uuid.UUID
		want    bool
	}{
		{"direct participant", direct, alice, RoleStudent, nil, true},
		{"direct outsider", direct, carol, RoleAdmin, nil, false},
		{"course enrolled", courseChat, alice, RoleStudent, []uuid.UUID{otherCourse, course}, true},
		{"course not enrolled", courseChat, bob, RoleStudent, []uuid.UUID{otherCourse}, false},
		{"course admin", courseChat, carol, RoleFaculty, nil, true},
		{"role room allowed role", roleRoom, alice, "Staff", nil, true},
		{"role room other role", roleRoom, alice, RoleStudent, nil, false},
		{"role room empty role", roleRoom, alice, "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.chat.VisibleTo(tt.user, tt.role, tt.courses))
		})
	}
}

func TestChat_Validate(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	course := uuid.New()

	tests := []struct {
		name    string
		chat    *Chat
		wantErr bool
	}{
		{"direct ok", NewDirectChat(a, b), false},
		{"direct self", NewDirectChat(a, a), true},
		{"group ok", &Chat{Kind: ChatKindGroup, Name: "Team", ParticipantIDs: []uuid.UUID{a, b, c}}, false},
		{"group duplicate members", &Chat{Kind: ChatKindGroup, Name: "Team", ParticipantIDs: []uuid.UUID{a, b, b}}, true},
		{"group without name", &Chat{Kind: ChatKindGroup, Name: "  ", ParticipantIDs: []uuid.UUID{a, b, c}}, true},
		{"course ok", &Chat{Kind: ChatKindCourse, ScopeCourseID: &course}, false},
		{"course without scope", &Chat{Kind: ChatKindCourse}, true},
		{"role room ok", &Chat{Kind: ChatKindRoleRoom, Name: "Admins", AllowedRoles: []string{RoleAdmin}}, false},
		{"role room without roles", &Chat{Kind: ChatKindRoleRoom, Name: "Admins"}, true},
		{"unknown kind", &Chat{Kind: "channel"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.chat.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperrors.ErrValidation), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestChat_DirectKey(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Equal(t, ConversationKey(a, b), NewDirectChat(b, a).DirectKey())
	assert.Empty(t, (&Chat{Kind: ChatKindGroup, ParticipantIDs: []uuid.UUID{a, b}}).DirectKey())
}

func TestNormalizeRoles(t *testing.T) {
	assert.Equal(t, []string{"faculty", "admin"}, NormalizeRoles([]string{" Faculty", "", "admin", "FACULTY"}))
	assert.Empty(t, NormalizeRoles(nil))
}

func TestDirectMessage_Helpers(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	m := &DirectMessage{SenderID: a, ReceiverID: b}

	assert.True(t, m.Involves(a))
	assert.False(t, m.Involves(c))
	assert.Equal(t, b, m.Counterpart(a))
	assert.Equal(t, a, m.Counterpart(b))
	assert.True(t, m.UnreadFor(b))
	assert.False(t, m.UnreadFor(a))

	m.Read = true
	assert.False(t, m.UnreadFor(b))
}
