// Package access решает, может ли пользователь выполнить операцию в данном чате.
package access

import (
	"context"
	"fmt"
)

type Operation int

const (
	OpEnterData Operation = iota
	OpListForms
	OpDefineForm
	OpDeleteForm
	OpReport
	OpBalance
	OpManageGroups
	OpDeleteSubmission
	OpGrantCredit
	OpManageAdmins
	OpTopUp
)

type class int

const (
	// группа должна быть зарегистрирована, если вызывающий не админ
	classGroup class = 1 << iota
	classAdmin
	classSuperAdmin
)

var rules = map[Operation]class{
	OpEnterData:        classGroup,
	OpListForms:        classGroup,
	OpDefineForm:       classGroup | classAdmin,
	OpDeleteForm:       classAdmin,
	OpReport:           classGroup | classAdmin,
	OpBalance:          classGroup | classAdmin,
	OpManageGroups:     classAdmin,
	OpDeleteSubmission: classAdmin,
	OpGrantCredit:      classSuperAdmin,
	OpManageAdmins:     classSuperAdmin,
	// пополнить баланс может любой: после оплаты он становится админом
	OpTopUp:            0,
}

type Reason string

const (
	ReasonNone               Reason = ""
	ReasonPrivateChat        Reason = "private_chat"
	ReasonGroupNotAuthorized Reason = "group_not_authorized"
	ReasonNotAdmin           Reason = "not_admin"
	ReasonNotSuperAdmin      Reason = "not_super_admin"
	ReasonUnknownOperation   Reason = "unknown_operation"
)

type Caller struct {
	UserID          int64
	ChatID          int64
	PrivateChat     bool
	SuperAdmin      bool
	Admin           bool
	GroupAuthorized bool
}

type Decision struct {
	Allow  bool
	Reason Reason
}

func allow() Decision { return Decision{Allow: true} }
func deny(r Reason) Decision { return Decision{Reason: r} }

func (d Decision) String() string {
	if d.Allow {
		return "allow"
	}
	return "deny:" + string(d.Reason)
}

// Check — чистая функция от фактов о вызывающем
func Check(c Caller, op Operation) Decision {
	rule, ok := rules[op]
	if !ok {
		return deny(ReasonUnknownOperation)
	}
	if c.SuperAdmin {
		return allow()
	}
	if rule&classSuperAdmin != 0 {
		return deny(ReasonNotSuperAdmin)
	}
	if c.Admin {
		return allow()
	}
	if rule&classGroup != 0 {
		if c.PrivateChat {
			return deny(ReasonPrivateChat)
		}
		if !c.GroupAuthorized {
			return deny(ReasonGroupNotAuthorized)
		}
	}
	if rule&classAdmin != 0 {
		return deny(ReasonNotAdmin)
	}
	return allow()
}

type Directory interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	IsAuthorizedGroup(ctx context.Context, groupID int64) (bool, error)
}

// Resolver собирает Caller из справочника и id супер-админа
type Resolver struct {
	dir        Directory
	superAdmin int64
}

func NewResolver(dir Directory, superAdminID int64) *Resolver {
	return &Resolver{dir: dir, superAdmin: superAdminID}
}

func (r *Resolver) IsSuperAdmin(userID int64) bool {
	return userID != 0 && userID == r.superAdmin
}

func (r *Resolver) Resolve(ctx context.Context, userID, chatID int64, private bool) (Caller, error) {
	c := Caller{
		UserID:      userID,
		ChatID:      chatID,
		PrivateChat: private,
		SuperAdmin:  r.IsSuperAdmin(userID),
	}
	if c.SuperAdmin {
		return c, nil
	}

	var err error
	if c.Admin, err = r.dir.IsAdmin(ctx, userID); err != nil {
		return c, fmt.Errorf("is admin %d: %w", userID, err)
	}
	if !private && !c.Admin {
		if c.GroupAuthorized, err = r.dir.IsAuthorizedGroup(ctx, chatID); err != nil {
			return c, fmt.Errorf("is authorized group %d: %w", chatID, err)
		}
	}
	return c, nil
}
