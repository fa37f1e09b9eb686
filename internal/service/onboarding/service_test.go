package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/glosspoint/nailstock/internal/apperr"
	"github.com/glosspoint/nailstock/internal/domain/models"
	"github.com/glosspoint/nailstock/internal/repository/memory"
)

const testSecret = "test-secret"

func newTestService(t *testing.T) (*Service, *memory.DB) {
	t.Helper()
	db := memory.NewDB()
	svc := NewService(db, db.Stores(), db.Users(), db.Activities(), testSecret, time.Hour, nil)
	return svc, db
}

func TestRegisterStore(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	store, owner, err := svc.RegisterStore(ctx, RegisterStoreInput{
		Name:          "Gloss Point",
		Address:       "12 Rue des Ongles",
		OwnerName:     "Aya",
		OwnerEmail:    "Aya@GlossPoint.test",
		OwnerPassword: "hunter22",
	})
	if err != nil {
		t.Fatalf("RegisterStore() error: %v", err)
	}

	if len(store.Code) != 8 {
		t.Errorf("store code = %q, want 8 characters", store.Code)
	}
	if owner.Role != models.RoleOwner || owner.StoreID != store.ID {
		t.Errorf("owner = role %s store %s, want owner of the new store", owner.Role, owner.StoreID.Hex())
	}
	if owner.Email != "aya@glosspoint.test" {
		t.Errorf("owner email = %q, want lowercased", owner.Email)
	}
	if owner.PasswordHash == "hunter22" || owner.PasswordHash == "" {
		t.Error("password stored without hashing")
	}
	if len(db.ActivityLog()) != 1 {
		t.Errorf("activity log has %d entries, want 1", len(db.ActivityLog()))
	}
}

func TestRegisterStoreValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.RegisterStore(context.Background(), RegisterStoreInput{Name: "Gloss Point"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("missing credentials err = %v, want ErrValidation", err)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	store, owner, err := svc.RegisterStore(ctx, RegisterStoreInput{
		Name:          "Gloss Point",
		OwnerEmail:    "aya@glosspoint.test",
		OwnerPassword: "hunter22",
	})
	if err != nil {
		t.Fatalf("RegisterStore() error: %v", err)
	}

	signed, user, err := svc.Login(ctx, "AYA@glosspoint.test", "hunter22")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if user.ID != owner.ID {
		t.Errorf("login returned user %s, want %s", user.ID.Hex(), owner.ID.Hex())
	}

	token, err := jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("issued token does not verify: %v", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("claims have type %T", token.Claims)
	}
	if claims["sub"] != owner.ID.Hex() || claims["storeId"] != store.ID.Hex() {
		t.Errorf("claims = %v, want sub/storeId of the owner", claims)
	}

	me, err := svc.Me(ctx, owner.ID)
	if err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if me.LastLogin == nil {
		t.Error("last login not recorded")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.RegisterStore(ctx, RegisterStoreInput{
		Name:          "Gloss Point",
		OwnerEmail:    "aya@glosspoint.test",
		OwnerPassword: "hunter22",
	}); err != nil {
		t.Fatalf("RegisterStore() error: %v", err)
	}

	if _, _, err := svc.Login(ctx, "aya@glosspoint.test", "wrong"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("wrong password err = %v, want ErrUnauthorized", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@glosspoint.test", "hunter22"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("unknown email err = %v, want ErrUnauthorized", err)
	}
}

func TestAddStaff(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	store, owner, err := svc.RegisterStore(ctx, RegisterStoreInput{
		Name:          "Gloss Point",
		OwnerEmail:    "aya@glosspoint.test",
		OwnerPassword: "hunter22",
	})
	if err != nil {
		t.Fatalf("RegisterStore() error: %v", err)
	}

	staff, err := svc.AddStaff(ctx, AddStaffInput{
		StoreID:  store.ID,
		ActorID:  owner.ID,
		Name:     "Mika",
		Email:    "mika@glosspoint.test",
		Password: "s3cret",
	})
	if err != nil {
		t.Fatalf("AddStaff() error: %v", err)
	}
	if staff.Role != models.RoleStaff || staff.StoreID != store.ID {
		t.Errorf("staff = role %s store %s", staff.Role, staff.StoreID.Hex())
	}

	// Staff accounts cannot add further staff.
	_, err = svc.AddStaff(ctx, AddStaffInput{
		StoreID:  store.ID,
		ActorID:  staff.ID,
		Email:    "lena@glosspoint.test",
		Password: "s3cret",
	})
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("staff actor err = %v, want ErrUnauthorized", err)
	}

	// Neither can an owner of a different store.
	_, otherOwner, err := svc.RegisterStore(ctx, RegisterStoreInput{
		Name:          "Polish Palace",
		OwnerEmail:    "zoe@palace.test",
		OwnerPassword: "hunter22",
	})
	if err != nil {
		t.Fatalf("RegisterStore() error: %v", err)
	}
	_, err = svc.AddStaff(ctx, AddStaffInput{
		StoreID:  store.ID,
		ActorID:  otherOwner.ID,
		Email:    "lena@glosspoint.test",
		Password: "s3cret",
	})
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("cross-store owner err = %v, want ErrUnauthorized", err)
	}
}

func TestAddStaffDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	store, owner, err := svc.RegisterStore(ctx, RegisterStoreInput{
		Name:          "Gloss Point",
		OwnerEmail:    "aya@glosspoint.test",
		OwnerPassword: "hunter22",
	})
	if err != nil {
		t.Fatalf("RegisterStore() error: %v", err)
	}

	_, err = svc.AddStaff(ctx, AddStaffInput{
		StoreID:  store.ID,
		ActorID:  owner.ID,
		Email:    "aya@glosspoint.test",
		Password: "s3cret",
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate email err = %v, want ErrConflict", err)
	}
}

func TestAddStaffUnknownActor(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddStaff(context.Background(), AddStaffInput{
		StoreID:  primitive.NewObjectID(),
		ActorID:  primitive.NewObjectID(),
		Email:    "x@y.test",
		Password: "s3cret",
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown actor err = %v, want ErrNotFound", err)
	}
}
