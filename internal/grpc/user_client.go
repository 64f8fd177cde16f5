package grpc

import (
	"context"
	"fmt"

	grpclib "google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"rental-chat/internal/models"
)

// BulkUsersMethod is the full gRPC method name served by the user service.
const BulkUsersMethod = "/user.UserDirectory/BulkUsers"

// UserClient resolves user profiles through the user-service gRPC API.
// Requests and responses are google.protobuf.Struct messages:
// {"ids": [..]} in, {"users": [{"id", "username", "image"}]} out.
type UserClient struct {
	conn grpclib.ClientConnInterface
}

// NewUserClient constructs the wrapper.
func NewUserClient(conn grpclib.ClientConnInterface) *UserClient {
	return &UserClient{conn: conn}
}

// UsersByIDs fetches multiple users in one call.
func (u *UserClient) UsersByIDs(ctx context.Context, ids []int) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	values := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}
	req, err := structpb.NewStruct(map[string]interface{}{"ids": values})
	if err != nil {
		return nil, fmt.Errorf("build bulk users request: %w", err)
	}

	resp := new(structpb.Struct)
	if err := u.conn.Invoke(ctx, BulkUsersMethod, req, resp); err != nil {
		return nil, fmt.Errorf("bulk users: %w", err)
	}

	list := resp.GetFields()["users"].GetListValue().GetValues()
	users := make([]models.User, 0, len(list))
	for _, v := range list {
		fields := v.GetStructValue().GetFields()
		id := int(fields["id"].GetNumberValue())
		if id == 0 {
			continue
		}
		users = append(users, models.User{
			ID:       id,
			Username: fields["username"].GetStringValue(),
			Image:    fields["image"].GetStringValue(),
		})
	}
	return users, nil
}
