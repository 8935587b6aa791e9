package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/pkg/db/models"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/pagination"
)

type fakeRepository struct {
	listFn        func(ctx context.Context, params listNotificationsParams) ([]models.Notification, error)
	markReadFn    func(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
	markAllReadFn func(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	deleted       bool
	unread        int64
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, userID, notificationID, now)
	}
	return notificationMarkResult{}, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, userID, now)
	}
	return 0, nil
}

func (f *fakeRepository) Delete(ctx context.Context, userID, notificationID uuid.UUID) (bool, error) {
	return f.deleted, nil
}

func (f *fakeRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return f.unread, nil
}

func (f *fakeRepository) AdminRecipients(ctx context.Context) ([]Recipient, error) {
	return nil, nil
}

func (f *fakeRepository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func newServiceWithRepo(repo Repository) Service {
	svc, _ := NewService(repo)
	return svc
}

func TestService_ListNotifications(t *testing.T) {
	newer := models.Notification{ID: uuid.New(), CreatedAt: time.Now()}
	older := models.Notification{ID: uuid.New(), CreatedAt: time.Now().Add(-time.Hour)}
	oldest := models.Notification{ID: uuid.New(), CreatedAt: time.Now().Add(-2 * time.Hour)}

	userID := uuid.New()
	repo := &fakeRepository{
		unread: 3,
		listFn: func(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
			if params.UserID != userID {
				t.Fatalf("unexpected user %s", params.UserID)
			}
			if params.Limit != 3 {
				t.Fatalf("expected buffered limit 3, got %d", params.Limit)
			}
			if !params.UnreadOnly {
				t.Fatalf("expected unread filter")
			}
			return []models.Notification{newer, older, oldest}, nil
		},
	}

	result, err := newServiceWithRepo(repo).List(context.Background(), ListParams{UserID: userID, Limit: 2, UnreadOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.UnreadCount != 3 {
		t.Fatalf("expected unread count 3, got %d", result.UnreadCount)
	}
	cursor, err := pagination.ParseCursor(result.NextCursor)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if cursor.ID != older.ID {
		t.Fatalf("expected cursor at last returned row")
	}
}

func TestService_ListRejectsBadCursor(t *testing.T) {
	_, err := newServiceWithRepo(&fakeRepository{}).List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "%%%"})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_MarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{Found: false}, nil
		},
	}
	err := newServiceWithRepo(repo).MarkRead(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_MarkReadRepoFailure(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
			return notificationMarkResult{}, errors.New("boom")
		},
	}
	err := newServiceWithRepo(repo).MarkRead(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.Is(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestService_MarkAllRead(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
			return 4, nil
		},
	}
	count, err := newServiceWithRepo(repo).MarkAllRead(context.Background(), uuid.New())
	if err != nil || count != 4 {
		t.Fatalf("expected 4 updated, got %d (%v)", count, err)
	}
	if _, err := newServiceWithRepo(repo).MarkAllRead(context.Background(), uuid.Nil); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for nil user")
	}
}

func TestService_Delete(t *testing.T) {
	if err := newServiceWithRepo(&fakeRepository{deleted: false}).Delete(context.Background(), uuid.New(), uuid.New()); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := newServiceWithRepo(&fakeRepository{deleted: true}).Delete(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
