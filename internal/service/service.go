// Package service реализует бизнес-логику сервиса заказа обедов.
package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/comedor/internal/clock"
	"github.com/mmeshcher/comedor/internal/metrics"
	"github.com/mmeshcher/comedor/internal/model"
	"github.com/mmeshcher/comedor/internal/repository"
	"github.com/mmeshcher/comedor/internal/validation"
)

var (
	// ErrInvalidInput возвращается при некорректных данных запроса.
	ErrInvalidInput = clock.ErrInvalidInput
	// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMenuNotFound возвращается, если меню недели не загружено.
	ErrMenuNotFound = errors.New("menu not found")
	// ErrOrderNotFound возвращается, если у пользователя нет заказа на неделю.
	ErrOrderNotFound = errors.New("order not found")
	// ErrCloseNotAllowedYet возвращается при ручном закрытии недели раньше разрешённого часа.
	ErrCloseNotAllowedYet = errors.New("weekly close is not allowed yet")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, u model.User) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUserSubsidy(ctx context.Context, id int64, mode model.SubsidyMode) error
	UpdatePassword(ctx context.Context, id int64, passwordHash []byte) error

	GetMenu(ctx context.Context, slot model.Slot) (*model.WeeklyMenu, error)
	PutMenu(ctx context.Context, m model.WeeklyMenu) error
	DeleteMenuWithOrders(ctx context.Context, slot model.Slot) (int64, error)

	GetCatalog(ctx context.Context) (*model.Catalog, error)
	PutCatalog(ctx context.Context, c model.Catalog) error
	GetPriceConfig(ctx context.Context) (*model.PriceConfig, error)
	PutPriceConfig(ctx context.Context, cfg model.PriceConfig) error
	GetDeadlines(ctx context.Context) (model.DeadlineConfig, error)
	PutDeadlines(ctx context.Context, d model.DeadlineConfig) error

	GetOrder(ctx context.Context, userID int64, slot model.Slot) (*model.Order, error)
	SaveOrder(ctx context.Context, o model.Order) (model.Order, error)
	DeleteUserOrder(ctx context.Context, userID int64, slot model.Slot) error
	ListOrders(ctx context.Context, slot model.Slot) ([]model.Order, error)

	ListHistory(ctx context.Context, userID int64, limit int) ([]model.HistoryRecord, error)
	ListRolloverRuns(ctx context.Context, limit int) ([]model.RolloverRun, error)
}

// WeekCloser выполняет закрытие недели.
type WeekCloser interface {
	Run(ctx context.Context, trigger string) (*model.RolloverRun, error)
}

// Options содержит зависимости сервиса помимо репозитория.
type Options struct {
	Zone          *clock.Zone
	Clock         clock.Clock
	Closer        WeekCloser
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
	CloseFromHour int
}

// Service содержит бизнес-логику сервиса заказа обедов.
type Service struct {
	repo          Repository
	zone          *clock.Zone
	clock         clock.Clock
	closer        WeekCloser
	metrics       *metrics.Metrics
	logger        *zap.Logger
	closeFromHour int
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:          repo,
		zone:          opts.Zone,
		clock:         opts.Clock,
		closer:        opts.Closer,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		closeFromHour: opts.CloseFromHour,
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// NewUser содержит данные для создания учётной записи.
type NewUser struct {
	Login       string
	Password    string
	DisplayName string
	Role        model.Role
	SubsidyMode model.SubsidyMode
}

// CreateUser создаёт учётную запись с заданной ролью и режимом компенсации.
func (s *Service) CreateUser(ctx context.Context, nu NewUser) (int64, error) {
	login := validation.NormalizeLogin(nu.Login)
	if !validation.IsValidLogin(login) {
		return 0, fmt.Errorf("%w: login must be an email address", ErrInvalidInput)
	}
	if !validation.IsValidPassword(nu.Password) {
		return 0, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, validation.MinPasswordLength)
	}

	role := nu.Role
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return 0, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	mode, err := model.ParseSubsidyMode(string(nu.SubsidyMode))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	name := strings.TrimSpace(nu.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(login, "@")
	}

	id, err := s.repo.CreateUser(ctx, model.User{
		Login:        login,
		DisplayName:  name,
		Role:         role,
		SubsidyMode:  mode,
		PasswordHash: hashPassword(login, nu.Password),
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, repository.ErrUserExists
		}
		return 0, err
	}

	s.logger.Info("user created", zap.Int64("userID", id), zap.String("role", string(role)))
	return id, nil
}

// EnsureAdmin создаёт администратора при первом запуске, если его ещё нет.
func (s *Service) EnsureAdmin(ctx context.Context, login, password string) error {
	if login == "" {
		return nil
	}
	_, err := s.repo.GetUserByLogin(ctx, validation.NormalizeLogin(login))
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	_, err = s.CreateUser(ctx, NewUser{
		Login:       login,
		Password:    password,
		DisplayName: "Administrador",
		Role:        model.RoleAdmin,
		SubsidyMode: model.SubsidyNone,
	})
	if errors.Is(err, repository.ErrUserExists) {
		return nil
	}
	return err
}

// AuthenticateUser проверяет логин и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	login = validation.NormalizeLogin(login)
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrInvalidCredentials
		}
		return 0, err
	}

	if !checkPassword(u, password) {
		return 0, ErrInvalidCredentials
	}

	return u.ID, nil
}

// ChangePassword меняет пароль после проверки текущего.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !checkPassword(u, current) {
		return ErrInvalidCredentials
	}
	if !validation.IsValidPassword(next) {
		return fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, validation.MinPasswordLength)
	}
	return s.repo.UpdatePassword(ctx, userID, hashPassword(u.Login, next))
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// IsAdmin сообщает, является ли пользователь администратором.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.IsAdmin(), nil
}

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// SetUserSubsidy меняет режим компенсации пользователя. Уже сохранённые заказы не пересчитываются.
func (s *Service) SetUserSubsidy(ctx context.Context, userID int64, mode string) error {
	m, err := model.ParseSubsidyMode(mode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.repo.UpdateUserSubsidy(ctx, userID, m)
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

func checkPassword(u *model.User, password string) bool {
	return subtle.ConstantTimeCompare(hashPassword(u.Login, password), u.PasswordHash) == 1
}
