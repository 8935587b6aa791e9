package orders

import (
	"fmt"

	"github.com/resinart/storefront-api/internal/notifications"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
)

// OwnerTask addresses an order notification to the customer, in-app and by email.
func OwnerTask(order *models.Order, title, message string) notifications.Task {
	link := fmt.Sprintf("/orders/%s", order.ID)
	task := notifications.Task{
		UserID:  order.UserID,
		Type:    enums.NotificationTypeOrder,
		Title:   title,
		Message: message,
		Link:    &link,
	}
	if order.User != nil {
		task.Email = order.User.Email
	}
	return task
}

func statusMessage(order *models.Order, req UpdateStatusRequest) string {
	msg := fmt.Sprintf("Your order %s is now %s.", order.OrderNumber, req.Status)
	if req.CourierCompany != nil && req.TrackingNumber != nil {
		msg += fmt.Sprintf(" %s tracking number: %s.", *req.CourierCompany, *req.TrackingNumber)
	} else if req.TrackingNumber != nil {
		msg += fmt.Sprintf(" Tracking number: %s.", *req.TrackingNumber)
	}
	return msg
}
