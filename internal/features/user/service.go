package user

import (
	"context"
	"strings"

	"acadhub/internal/apperr"
	"acadhub/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, email, password string) (string, *User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	SetCoordinator(ctx context.Context, userID primitive.ObjectID, isCoordinator bool) error
}

type RegisterInput struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	Role          Role    `json:"role"`
	Department    string  `json:"department"`
	CGPA          float64 `json:"cgpa"`
	Backlogs      int     `json:"backlogs"`
	CreditsEarned int     `json:"credits_earned"`
}

type UserServiceImpl struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) UserService {
	return &UserServiceImpl{repo: repo}
}

func (s *UserServiceImpl) Register(ctx context.Context, input RegisterInput) (*User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" || input.Password == "" || input.Name == "" {
		return nil, apperr.Validation("name, email and password are required")
	}

	switch input.Role {
	case RoleStudent, RoleFaculty, RoleAdmin:
	case "":
		input.Role = RoleStudent
	default:
		return nil, apperr.Validation("unknown role %q", input.Role)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:          input.Name,
		Email:         input.Email,
		Password:      string(hashed),
		Role:          input.Role,
		Department:    input.Department,
		CGPA:          input.CGPA,
		Backlogs:      input.Backlogs,
		CreditsEarned: input.CreditsEarned,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, err
	}
	return u, nil
}

func (s *UserServiceImpl) Login(ctx context.Context, email, password string) (string, *User, error) {
	u, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		return "", nil, apperr.Authorization("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", nil, apperr.Authorization("invalid credentials")
	}

	token, err := utils.GenerateToken(u.ID, string(u.Role))
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *UserServiceImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

func (s *UserServiceImpl) SetCoordinator(ctx context.Context, userID primitive.ObjectID, isCoordinator bool) error {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.NotFound("user not found")
	}
	return s.repo.SetCoordinator(ctx, userID, isCoordinator)
}
