package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/procurehub/backend/pkg/db/models"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
	"github.com/procurehub/backend/pkg/logger"
	"github.com/procurehub/backend/pkg/mailer"
)

// Events carried in notification jobs. Each one maps to a buyer email; the
// created event additionally emails every supplier with a line in the order.
const (
	EventOrderCreated      = "order.created"
	EventOrderStateChanged = "order.state_changed"
)

type orderLoader interface {
	FindOrderDetail(ctx context.Context, orderID int64) (*models.Order, error)
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
}

// Service composes and sends order emails.
type Service interface {
	SendOrderEvent(ctx context.Context, orderID int64, event string) (string, error)
}

type service struct {
	orders orderLoader
	users  userLoader
	mail   mailer.Mailer
	logg   *logger.Logger
}

// NewService builds the notification service.
func NewService(orders orderLoader, users userLoader, mail mailer.Mailer, logg *logger.Logger) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailer required")
	}
	return &service{orders: orders, users: users, mail: mail, logg: logg}, nil
}

// SendOrderEvent emails the parties of an order about the given event. The
// returned string summarises deliveries for the job result.
func (s *service) SendOrderEvent(ctx context.Context, orderID int64, event string) (string, error) {
	order, err := s.orders.FindOrderDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}

	buyer, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "order buyer not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading buyer")
	}

	sent := 0
	switch event {
	case EventOrderCreated:
		if err := s.mail.Send(ctx, buyerCreatedMessage(buyer, order)); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sending buyer email")
		}
		sent++

		owners, err := s.supplierOwners(ctx, order)
		if err != nil {
			return "", err
		}
		var sendErrs []error
		for _, owner := range owners {
			if err := s.mail.Send(ctx, supplierCreatedMessage(owner, order)); err != nil {
				sendErrs = append(sendErrs, fmt.Errorf("supplier %s: %w", owner.Email, err))
				continue
			}
			sent++
		}
		if combined := multierr.Combine(sendErrs...); combined != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, combined, "sending supplier emails")
		}
	case EventOrderStateChanged:
		if err := s.mail.Send(ctx, stateChangedMessage(buyer, order)); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sending buyer email")
		}
		sent++
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown notification event %q", event))
	}

	return fmt.Sprintf("sent %d emails for order %d (%s)", sent, orderID, event), nil
}

// supplierOwners resolves the distinct shop owners with a line in the order.
func (s *service) supplierOwners(ctx context.Context, order *models.Order) ([]models.User, error) {
	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		if item.Listing == nil || item.Listing.Shop == nil {
			continue
		}
		owner := item.Listing.Shop.OwnerID
		if _, ok := seen[owner]; ok {
			continue
		}
		seen[owner] = struct{}{}
		ids = append(ids, owner)
	}
	owners, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shop owners")
	}
	return owners, nil
}

func buyerCreatedMessage(buyer *models.User, order *models.Order) mailer.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nYour order #%d has been placed.\n\n", displayName(buyer), order.ID)
	writeOrderLines(&b, order, 0)
	if order.Contact != nil {
		fmt.Fprintf(&b, "\nDelivery: %s, %s %s, %s\n",
			order.Contact.City, order.Contact.Street, order.Contact.House, order.Contact.Phone)
	}
	return mailer.Message{
		To:      []string{buyer.Email},
		Subject: fmt.Sprintf("Order #%d confirmed", order.ID),
		Body:    b.String(),
	}
}

func supplierCreatedMessage(owner models.User, order *models.Order) mailer.Message {
	shopID := ownerShopID(owner.ID, order)

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nYou have new lines in order #%d.\n\n", displayName(&owner), order.ID)
	writeOrderLines(&b, order, shopID)
	return mailer.Message{
		To:      []string{owner.Email},
		Subject: fmt.Sprintf("New order #%d", order.ID),
		Body:    b.String(),
	}
}

func stateChangedMessage(buyer *models.User, order *models.Order) mailer.Message {
	body := fmt.Sprintf("Hello %s,\n\nOrder #%d is now %s.\n", displayName(buyer), order.ID, order.State)
	return mailer.Message{
		To:      []string{buyer.Email},
		Subject: fmt.Sprintf("Order #%d is now %s", order.ID, order.State),
		Body:    body,
	}
}

// writeOrderLines appends the order lines to the message body. A non-zero
// shopID restricts output to that shop's lines.
func writeOrderLines(b *strings.Builder, order *models.Order, shopID int64) {
	items := make([]models.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if shopID != 0 && (item.Listing == nil || item.Listing.ShopID != shopID) {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ListingID < items[j].ListingID })

	total := decimal.Zero
	for _, item := range items {
		name := fmt.Sprintf("listing %d", item.ListingID)
		if item.Listing != nil && item.Listing.Product != nil {
			name = item.Listing.Product.Name
		}
		subtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		fmt.Fprintf(b, "  %s x%d @ %s = %s\n", name, item.Quantity, item.UnitPrice.StringFixed(2), subtotal.StringFixed(2))
		total = total.Add(subtotal)
	}
	fmt.Fprintf(b, "\nTotal: %s\n", total.StringFixed(2))
}

func ownerShopID(ownerID uuid.UUID, order *models.Order) int64 {
	for _, item := range order.Items {
		if item.Listing != nil && item.Listing.Shop != nil && item.Listing.Shop.OwnerID == ownerID {
			return item.Listing.ShopID
		}
	}
	return 0
}

func displayName(user *models.User) string {
	if user.Name != "" {
		return user.Name
	}
	return user.Email
}
