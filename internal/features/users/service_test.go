package users

import (
	"context"
	"errors"
	"testing"

	"serotonyl.ru/karma-tracker/internal/common"
)

// fakeRepo — хранилище пользователей в памяти.
type fakeRepo struct {
	byName map[string]*User
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byName: make(map[string]*User), nextID: 1}
}

func (f *fakeRepo) Create(_ context.Context, u *User) error {
	if _, ok := f.byName[u.Username]; ok {
		return common.ErrUsernameTaken
	}
	u.ID = f.nextID
	f.nextID++
	f.byName[u.Username] = u
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*User, error) {
	for _, u := range f.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.ErrUserNotFound
}

func (f *fakeRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	if u, ok := f.byName[username]; ok {
		return u, nil
	}
	return nil, common.ErrUserNotFound
}

func (f *fakeRepo) ListIDs(_ context.Context) ([]int64, error) {
	var ids []int64
	for _, u := range f.byName {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("секретный-пароль")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword("секретный-пароль", hash)
	if err != nil || !ok {
		t.Errorf("правильный пароль не прошёл проверку: ok=%v err=%v", ok, err)
	}

	ok, err = VerifyPassword("другой-пароль", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Error("неверный пароль прошёл проверку")
	}
}

func TestRegister_StoresHashNotPassword(t *testing.T) {
	svc := NewService(newFakeRepo())

	u, err := svc.Register(context.Background(), "masha", "masha@example.com", "пароль123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.PasswordHash == "пароль123" || u.PasswordHash == "" {
		t.Error("пароль должен храниться только в виде хеша")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "  ", "a@b", "p"); !errors.Is(err, common.ErrEmptyUsername) {
		t.Errorf("пустое имя: err = %v", err)
	}
	if _, err := svc.Register(ctx, "vasya", "a@b", ""); !errors.Is(err, common.ErrEmptyPassword) {
		t.Errorf("пустой пароль: err = %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "petya", "p@example.com", "qwerty"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "petya", "qwerty"); err != nil {
		t.Errorf("верные данные отклонены: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "petya", "не тот"); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Errorf("неверный пароль: err = %v", err)
	}
	// Несуществующий пользователь — та же ошибка, что и неверный пароль
	if _, err := svc.Authenticate(ctx, "нет такого", "qwerty"); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Errorf("несуществующий пользователь: err = %v", err)
	}
}
