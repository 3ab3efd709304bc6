package users

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"

	"github.com/samvad-hq/userlist/internal/domain"
	"github.com/samvad-hq/userlist/pkg/httpclient"
)

const usersPath = "/users"

// Service fetches user records from the users API.
type Service struct {
	client   httpclient.Client
	validate *validator.Validate
}

// NewService builds a Service on top of a configured client.
func NewService(client httpclient.Client) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{client: client, validate: v}
}

// userPayload mirrors domain.User with pointer fields so absent and null
// values can be told apart from zero values.
type userPayload struct {
	ID        *int64      `json:"id" validate:"required"`
	Username  *string     `json:"username" validate:"required"`
	BirthDate *civil.Date `json:"birthDate" validate:"required"`
	Firstname *string     `json:"firstname" validate:"required"`
	Lastname  *string     `json:"lastname" validate:"required"`
}

func (p *userPayload) toDomain() domain.User {
	return domain.User{
		ID:        *p.ID,
		Username:  *p.Username,
		BirthDate: *p.BirthDate,
		Firstname: *p.Firstname,
		Lastname:  *p.Lastname,
	}
}

// GetAllUsers returns every user in the order the server sent them.
func (s *Service) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	var payload []*userPayload
	if err := s.client.GetJSON(ctx, usersPath, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, httpclient.NewDecodeError("GET "+usersPath, errors.New("expected a JSON array of users, got null"))
	}

	out := make([]domain.User, 0, len(payload))
	for i, p := range payload {
		if err := s.check(p); err != nil {
			return nil, httpclient.NewDecodeError("GET "+usersPath, fmt.Errorf("user[%d]: %w", i, err))
		}
		out = append(out, p.toDomain())
	}
	return out, nil
}

// GetUserByID returns the single user at /users/{id}.
func (s *Service) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	path := fmt.Sprintf("%s/%d", usersPath, id)

	var payload *userPayload
	if err := s.client.GetJSON(ctx, path, &payload); err != nil {
		return domain.User{}, err
	}
	if err := s.check(payload); err != nil {
		return domain.User{}, httpclient.NewDecodeError("GET "+path, err)
	}
	return payload.toDomain(), nil
}

func (s *Service) check(p *userPayload) error {
	if p == nil {
		return errors.New("expected a JSON user object, got null")
	}
	if err := s.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			missing := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				missing = append(missing, fe.Field())
			}
			return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
		}
		return err
	}
	return nil
}
