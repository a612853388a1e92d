package handler

import (
	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/core/ports"
)

// --- Request → Service input ---

func toCreateInput(req createUserRequest, idempotencyKey string) ports.CreateUserInput {
	return ports.CreateUserInput{
		UserName:       req.UserName,
		FullName:       req.FullName,
		Email:          req.Email,
		Role:           req.Role,
		IdempotencyKey: idempotencyKey,
	}
}

func toUpdateInput(id string, req updateUserRequest) ports.UpdateUserInput {
	return ports.UpdateUserInput{
		ID:       id,
		UserName: req.UserName,
		FullName: req.FullName,
		Email:    req.Email,
		Role:     req.Role,
	}
}

// --- Service result → HTTP response ---

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:       u.ID,
		UserName: u.UserName,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     string(u.Role),
	}
}

func toListResponse(users []domain.User) listUsersResponse {
	items := make([]userResponse, len(users))
	for i, u := range users {
		items[i] = toUserResponse(u)
	}
	resp := listUsersResponse{Users: items}
	if len(items) == 0 {
		resp.Msg = msgNoUsers
	}
	return resp
}
