package model

// LetterInput is the body of letter create and update. Fields are plain
// strings so that missing and malformed values can be told apart.
type LetterInput struct {
	NomorSurat string `json:"nomor_surat"`
	Perihal    string `json:"perihal"`
	Tanggal    string `json:"tanggal"`
	Jenis      string `json:"jenis"`
	Status     string `json:"status"`
}

type LetterFilter struct {
	Jenis string
	Query string
}

// UserFilter narrows the admin user list; empty fields match everything.
type UserFilter struct {
	Query  string
	Role   string
	Status string
}

type CreateUserInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// UpdateUserInput carries only the fields present in the request.
type UpdateUserInput struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Status   *string `json:"status"`
}

func (in UpdateUserInput) Empty() bool {
	return in.Username == nil && in.Password == nil && in.Role == nil && in.Status == nil
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
