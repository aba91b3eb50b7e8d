package auth

import "eventhub/internal/models"

// Action names one guarded mutation or read.
type Action string

const (
	OrderRead     Action = "order:read"
	OrderUpdate   Action = "order:update"
	OrderDelete   Action = "order:delete"
	OrderListAll  Action = "order:list_all"
	EventManage   Action = "event:manage"
	PromoManage   Action = "promo:manage"
	TaskCreate    Action = "task:create"
	TaskComplete  Action = "task:complete"
	TaskVerify    Action = "task:verify"
	PaymentRead   Action = "payment:read"
)

// Resource carries the ownership facts a decision needs. Fields irrelevant
// to an action are left zero.
type Resource struct {
	OwnerID   string
	CompanyID string
}

// Can is the single capability check replacing per-handler role
// conditionals. Ownership comparisons are by user id; role checks follow
// the platform's admin > manager > employee/guest ladder.
func Can(actor Actor, action Action, resource Resource) bool {
	switch action {
	case OrderRead, OrderUpdate:
		return actor.ID == resource.OwnerID || actor.Role == models.RoleAdmin
	case OrderDelete, PaymentRead:
		// Buyers only; admins cannot delete someone else's order.
		return actor.ID == resource.OwnerID
	case OrderListAll, PromoManage, TaskVerify:
		return actor.Role == models.RoleAdmin
	case EventManage, TaskCreate:
		return actor.Role == models.RoleAdmin || actor.Role == models.RoleManager
	case TaskComplete:
		if actor.Role != models.RoleEmployee && actor.Role != models.RoleGuest {
			return false
		}
		return actor.ID == resource.OwnerID
	}
	return false
}
