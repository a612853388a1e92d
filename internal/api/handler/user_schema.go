package handler

// messageResponse is the envelope for every response that carries no record,
// including all 4xx/5xx errors.
type messageResponse struct {
	Msg string `json:"msg"`
}

// --- Request / Response types ---

type createUserRequest struct {
	UserName string `json:"userName" validate:"required"`
	FullName string `json:"fullName"`
	Email    string `json:"email"    validate:"required"`
	Role     string `json:"role"     validate:"required,oneof=Admin User Manager Developer"`
}

// updateUserRequest uses pointers so absent fields can be told apart from
// fields explicitly set to "".
type updateUserRequest struct {
	UserName *string `json:"userName" validate:"omitnil,min=1"`
	FullName *string `json:"fullName"`
	Email    *string `json:"email"    validate:"omitnil,min=1"`
	Role     *string `json:"role"     validate:"omitnil,oneof=Admin User Manager Developer"`
}

type userResponse struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type listUsersResponse struct {
	Users []userResponse `json:"users"`
	Msg   string         `json:"msg,omitempty"`
}

type userEnvelopeResponse struct {
	Msg  string       `json:"msg"`
	User userResponse `json:"user"`
}
