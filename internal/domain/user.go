package domain

import "context"

// UserHandle identifies an authenticated account.
type UserHandle struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

type userKey struct{}

func WithUser(ctx context.Context, u UserHandle) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the handle put in ctx by the auth middleware.
func UserFromContext(ctx context.Context) (UserHandle, bool) {
	u, ok := ctx.Value(userKey{}).(UserHandle)
	return u, ok && u.UID != ""
}

const UsersCollection = "users"

// Profile is the user document kept in the document store under users/{uid}.
type Profile struct {
	Name             string `json:"name"`
	Age              string `json:"age"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	ProfileImagePath string `json:"profile_image_path,omitempty"`
}

func (p Profile) Fields() map[string]any {
	fields := map[string]any{
		"name":  p.Name,
		"age":   p.Age,
		"phone": p.Phone,
		"email": p.Email,
	}
	if p.ProfileImagePath != "" {
		fields["profileImagePath"] = p.ProfileImagePath
	}
	return fields
}

func ProfileFromFields(fields map[string]any) Profile {
	str := func(key string) string {
		if v, ok := fields[key].(string); ok {
			return v
		}
		return ""
	}
	return Profile{
		Name:             str("name"),
		Age:              str("age"),
		Phone:            str("phone"),
		Email:            str("email"),
		ProfileImagePath: str("profileImagePath"),
	}
}
