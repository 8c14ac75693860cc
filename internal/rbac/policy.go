package rbac

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownAction is returned for action names outside the policy table.
var ErrUnknownAction = errors.New("rbac: unknown action")

// Action names a guarded operation.
type Action string

// Actions understood by the policy.
const (
	ActionCreate            Action = "create"
	ActionDelete            Action = "delete"
	ActionShow              Action = "show"
	ActionEdit              Action = "edit"
	ActionChangeRole        Action = "change_role"
	ActionShowStatistics    Action = "show_statistics"
	ActionShowUserVisits    Action = "show_user_visits"
	ActionShowAllViewButton Action = "show_all_view_button"
)

type rule func(p Principal, rec *Record) bool

func adminOnly(p Principal, _ *Record) bool {
	return p.IsAdmin
}

func always(Principal, *Record) bool {
	return true
}

func ownerOrAdmin(p Principal, rec *Record) bool {
	if rec != nil && p.Authenticated() && p.ID == rec.ID {
		return true
	}
	return p.IsAdmin
}

var rules = map[Action]rule{
	ActionCreate:            adminOnly,
	ActionDelete:            adminOnly,
	ActionShow:              always,
	ActionEdit:              ownerOrAdmin,
	ActionChangeRole:        adminOnly,
	ActionShowStatistics:    adminOnly,
	ActionShowUserVisits:    adminOnly,
	ActionShowAllViewButton: adminOnly,
}

// Allows decides whether p may perform action on rec. rec is nil when the
// action has no target. Unknown actions are denied.
func Allows(p Principal, action Action, rec *Record) bool {
	check, ok := rules[action]
	if !ok {
		return false
	}
	return check(p, rec)
}

// ParseAction maps a name onto a known Action.
func ParseAction(name string) (Action, error) {
	action := Action(name)
	if _, ok := rules[action]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return action, nil
}

// MustAction is ParseAction for route wiring; it panics on unknown names so
// a typo fails at startup instead of denying every request.
func MustAction(name string) Action {
	action, err := ParseAction(name)
	if err != nil {
		panic(err)
	}
	return action
}

// Actions lists every known action in name order.
func Actions() []Action {
	out := make([]Action, 0, len(rules))
	for action := range rules {
		out = append(out, action)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
