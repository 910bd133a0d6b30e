package transport

type SignUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Metadata map[string]any `json:"metadata"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	Email string `json:"email"`
}

type ProfileUpdateRequest struct {
	Metadata map[string]any `json:"metadata"`
}

type SetUserRequest struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Role     string         `json:"role"`
	Metadata map[string]any `json:"metadata"`
}
