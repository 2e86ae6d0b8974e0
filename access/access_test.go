package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_form_bot/storage"
)

func TestCheck(t *testing.T) {
	member := Caller{UserID: 7, ChatID: -100, GroupAuthorized: true}
	stranger := Caller{UserID: 7, ChatID: -200}
	private := Caller{UserID: 7, ChatID: 7, PrivateChat: true}
	admin := Caller{UserID: 42, ChatID: 42, PrivateChat: true, Admin: true}
	super := Caller{UserID: 1, ChatID: -200, SuperAdmin: true}

	cases := []struct {
		name   string
		caller Caller
		op     Operation
		want   Decision
	}{
		{"member enters data", member, OpEnterData, Decision{Allow: true}},
		{"member lists forms", member, OpListForms, Decision{Allow: true}},
		{"member cannot define", member, OpDefineForm, Decision{Reason: ReasonNotAdmin}},
		{"member cannot report", member, OpReport, Decision{Reason: ReasonNotAdmin}},
		{"stranger group", stranger, OpEnterData, Decision{Reason: ReasonGroupNotAuthorized}},
		{"private non-admin", private, OpEnterData, Decision{Reason: ReasonPrivateChat}},
		{"private non-admin delete", private, OpDeleteForm, Decision{Reason: ReasonNotAdmin}},
		{"admin in private", admin, OpDefineForm, Decision{Allow: true}},
		{"admin deletes submission", admin, OpDeleteSubmission, Decision{Allow: true}},
		{"admin cannot grant", admin, OpGrantCredit, Decision{Reason: ReasonNotSuperAdmin}},
		{"admin cannot manage admins", admin, OpManageAdmins, Decision{Reason: ReasonNotSuperAdmin}},
		{"super anywhere", super, OpManageAdmins, Decision{Allow: true}},
		{"super in unregistered group", super, OpEnterData, Decision{Allow: true}},
		{"stranger tops up", stranger, OpTopUp, Decision{Allow: true}},
		{"private guest tops up", private, OpTopUp, Decision{Allow: true}},
		{"unknown op", super, Operation(99), Decision{Reason: ReasonUnknownOperation}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Check(tc.caller, tc.op))
		})
	}
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	st := storage.New()
	require.NoError(t, st.AddAdmin(ctx, 42, "Ayşe", 1))
	require.NoError(t, st.AddGroup(ctx, -100, "Satış", 42))

	r := NewResolver(st, 1)

	c, err := r.Resolve(ctx, 1, -999, false)
	require.NoError(t, err)
	assert.True(t, c.SuperAdmin)

	c, err = r.Resolve(ctx, 42, 42, true)
	require.NoError(t, err)
	assert.True(t, c.Admin)
	assert.False(t, c.SuperAdmin)

	c, err = r.Resolve(ctx, 7, -100, false)
	require.NoError(t, err)
	assert.False(t, c.Admin)
	assert.True(t, c.GroupAuthorized)

	c, err = r.Resolve(ctx, 7, -300, false)
	require.NoError(t, err)
	assert.False(t, c.GroupAuthorized)
	assert.Equal(t, Decision{Reason: ReasonGroupNotAuthorized}, Check(c, OpEnterData))

	assert.False(t, NewResolver(st, 0).IsSuperAdmin(0))
}
