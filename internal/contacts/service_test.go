package contacts

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/procurehub/backend/pkg/db/models"
	pkgerrors "github.com/procurehub/backend/pkg/errors"
)

func setupContactsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS contacts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  city TEXT NOT NULL,
  street TEXT NOT NULL,
  house TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  contact_id INTEGER NOT NULL,
  state TEXT NOT NULL DEFAULT 'new',
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newContactsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func validInput() ContactInput {
	return ContactInput{City: "Moscow", Street: "Tverskaya", House: "7", Phone: "+7 900 000 00 00"}
}

func TestCreateAndListContacts(t *testing.T) {
	db := setupContactsTestDB(t)
	svc := newContactsService(t, db)
	userID := uuid.New()

	created, err := svc.Create(context.Background(), userID, validInput())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Moscow", created.City)

	rows, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, created.ID, rows[0].ID)
}

func TestCreateEnforcesAddressBookCap(t *testing.T) {
	db := setupContactsTestDB(t)
	svc := newContactsService(t, db)
	userID := uuid.New()

	for i := 0; i < MaxContactsPerUser; i++ {
		input := validInput()
		input.House = fmt.Sprintf("%d", i+1)
		_, err := svc.Create(context.Background(), userID, input)
		require.NoError(t, err)
	}

	_, err := svc.Create(context.Background(), userID, validInput())
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestCreateRejectsMissingFields(t *testing.T) {
	svc := newContactsService(t, setupContactsTestDB(t))

	cases := []ContactInput{
		{Street: "Tverskaya", Phone: "+7 900"},
		{City: "Moscow", Phone: "+7 900"},
		{City: "Moscow", Street: "Tverskaya"},
	}
	for _, input := range cases {
		_, err := svc.Create(context.Background(), uuid.New(), input)
		require.Error(t, err, "input %+v", input)
	}
}

func TestGetHidesForeignContacts(t *testing.T) {
	db := setupContactsTestDB(t)
	svc := newContactsService(t, db)

	owner := uuid.New()
	created, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.New(), created.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())

	got, err := svc.Get(context.Background(), owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestUpdateContact(t *testing.T) {
	db := setupContactsTestDB(t)
	svc := newContactsService(t, db)
	userID := uuid.New()

	created, err := svc.Create(context.Background(), userID, validInput())
	require.NoError(t, err)

	input := validInput()
	input.City = "Kazan"
	updated, err := svc.Update(context.Background(), userID, created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Kazan", updated.City)

	got, err := svc.Get(context.Background(), userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kazan", got.City)
}

func TestDeleteRefusesContactWithOrders(t *testing.T) {
	db := setupContactsTestDB(t)
	svc := newContactsService(t, db)
	userID := uuid.New()

	created, err := svc.Create(context.Background(), userID, validInput())
	require.NoError(t, err)

	order := models.Order{UserID: userID, ContactID: created.ID}
	require.NoError(t, db.Create(&order).Error)

	err = svc.Delete(context.Background(), userID, created.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestDeleteRemovesUnusedContact(t *testing.T) {
	db := setupContactsTestDB(t)
	svc := newContactsService(t, db)
	userID := uuid.New()

	created, err := svc.Create(context.Background(), userID, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), userID, created.ID))

	rows, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
