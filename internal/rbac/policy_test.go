package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowsMatchesPolicyTable(t *testing.T) {
	admin := Principal{ID: 1, Login: "admin", RoleID: 1, IsAdmin: true}
	user := Principal{ID: 2, Login: "user", RoleID: 2}
	anonymous := Anonymous()
	other := &Record{ID: 3}

	cases := []struct {
		action Action
		admin  bool
		user   bool
		anon   bool
	}{
		{ActionCreate, true, false, false},
		{ActionDelete, true, false, false},
		{ActionShow, true, true, true},
		{ActionEdit, true, false, false},
		{ActionChangeRole, true, false, false},
		{ActionShowStatistics, true, false, false},
		{ActionShowUserVisits, true, false, false},
		{ActionShowAllViewButton, true, false, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.action), func(t *testing.T) {
			assert.Equal(t, tc.admin, Allows(admin, tc.action, other), "admin")
			assert.Equal(t, tc.user, Allows(user, tc.action, other), "user")
			assert.Equal(t, tc.anon, Allows(anonymous, tc.action, other), "anonymous")
		})
	}
	assert.Len(t, Actions(), len(cases))
}

func TestAllowsUnknownActionDenies(t *testing.T) {
	admin := Principal{ID: 1, IsAdmin: true}
	assert.False(t, Allows(admin, Action("drop_database"), nil))
	assert.False(t, Allows(admin, Action(""), nil))
}

func TestEditOwnRecordRegardlessOfRole(t *testing.T) {
	user := Principal{ID: 5, RoleID: 2}
	assert.True(t, Allows(user, ActionEdit, &Record{ID: 5}))
	assert.False(t, Allows(user, ActionEdit, &Record{ID: 6}))
	assert.False(t, Allows(user, ActionEdit, nil))

	admin := Principal{ID: 1, IsAdmin: true}
	assert.True(t, Allows(admin, ActionEdit, &Record{ID: 6}))
	assert.True(t, Allows(admin, ActionEdit, nil))
}

func TestAnonymousNeverOwnsRecord(t *testing.T) {
	assert.False(t, Allows(Anonymous(), ActionEdit, &Record{ID: 0}))
}

func TestParseAction(t *testing.T) {
	action, err := ParseAction("show_statistics")
	require.NoError(t, err)
	assert.Equal(t, ActionShowStatistics, action)

	_, err = ParseAction("show_stats")
	assert.ErrorIs(t, err, ErrUnknownAction)

	assert.Panics(t, func() { MustAction("nope") })
	assert.NotPanics(t, func() { MustAction("delete") })
}
