package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stirka/internal/database"
	"stirka/internal/domain"
	"stirka/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// AuthService отвечает за регистрацию, вход по паролю и через Google,
// а также за выдачу и проверку сессий.
type AuthService struct {
	repo          domain.Repository
	sessions      domain.SessionRepository
	verifier      domain.TokenVerifier
	allowedDomain string
	logger        *zerolog.Logger
}

func NewAuthService(repo domain.Repository, sessions domain.SessionRepository, verifier domain.TokenVerifier, allowedDomain string, logger *zerolog.Logger) *AuthService {
	return &AuthService{
		repo:          repo,
		sessions:      sessions,
		verifier:      verifier,
		allowedDomain: allowedDomain,
		logger:        logger,
	}
}

// Register создает пользователя с ролью user и bcrypt-хэшем пароля.
func (s *AuthService) Register(ctx context.Context, studentID, username, password string) (*models.User, error) {
	if studentID == "" || username == "" || password == "" {
		return nil, fmt.Errorf("%w: student_id, username and password are required", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		StudentID:    studentID,
		Username:     username,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("student_id", studentID).Msg("user registered")
	return user, nil
}

// Login проверяет пароль и выдает сессию. Поиск идет только среди
// role=user: администратор через этот путь не войдет.
func (s *AuthService) Login(ctx context.Context, studentID, password string) (*models.User, *models.Session, error) {
	return s.login(ctx, studentID, password, models.RoleUser)
}

// AdminLogin то же самое в пределах role=admin.
func (s *AuthService) AdminLogin(ctx context.Context, adminID, password string) (*models.User, *models.Session, error) {
	return s.login(ctx, adminID, password, models.RoleAdmin)
}

func (s *AuthService) login(ctx context.Context, studentID, password string, role models.Role) (*models.User, *models.Session, error) {
	if studentID == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: id and password are required", ErrValidation)
	}

	user, err := s.repo.GetUserByStudentID(ctx, studentID, role)
	if errors.Is(err, database.ErrUserNotFound) {
		// Неизвестный id неотличим от неверного пароля
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	// Федеративные учетки не имеют пароля
	if user.PasswordHash == models.FederatedCredential {
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// FederatedLogin принимает Google ID token, проверяет домен и находит
// пользователя по локальной части email. Пустой email дозаполняется.
func (s *AuthService) FederatedLogin(ctx context.Context, token string) (*models.User, *models.Session, error) {
	identity, err := s.verifyIdentity(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	studentID := studentIDFromEmail(identity.Email)
	user, err := s.repo.GetUserByStudentID(ctx, studentID, models.RoleUser)
	if err != nil {
		return nil, nil, err
	}

	if user.Email == "" {
		if err := s.repo.UpdateUserEmail(ctx, user.ID, identity.Email); err != nil {
			s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to backfill email")
		} else {
			user.Email = identity.Email
		}
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// FederatedRegister регистрирует пользователя по проверенному Google-токену.
// Вместо пароля хранится маркер: парольный вход для таких записей невозможен.
func (s *AuthService) FederatedRegister(ctx context.Context, token string) (*models.User, error) {
	identity, err := s.verifyIdentity(ctx, token)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		StudentID:    studentIDFromEmail(identity.Email),
		Username:     identity.Name,
		PasswordHash: models.FederatedCredential,
		Email:        identity.Email,
		Role:         models.RoleUser,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("student_id", user.StudentID).Msg("user registered via google")
	return user, nil
}

func (s *AuthService) verifyIdentity(ctx context.Context, token string) (*domain.VerifiedIdentity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrValidation)
	}
	if s.verifier == nil {
		return nil, fmt.Errorf("%w: federated login is not configured", ErrInvalidToken)
	}

	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if s.allowedDomain != "" && !strings.HasSuffix(identity.Email, "@"+s.allowedDomain) {
		return nil, ErrUnauthorizedDomain
	}
	return identity, nil
}

// Authenticate находит сессию по токену. Для middleware.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Logout удаляет сессию. Отсутствующий токен не считается ошибкой.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteSession(ctx, token)
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User) (*models.Session, error) {
	session := &models.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		CreatedAt: time.Now(),
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

func studentIDFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
