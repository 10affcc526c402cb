package admin

import (
	"context"
	"log/slog"
	"time"

	"padicrib/internal/app/dto"
	"padicrib/internal/app/handlers/support"
	domainproviders "padicrib/internal/domain/providers"
	domainuser "padicrib/internal/domain/user"
)

const addProviderKey = "admin.providers.add"

type AddProviderCommand struct {
	AdminID domainuser.ID `validate:"required"`
	Type    string        `json:"type" validate:"required,oneof=laundry food"`
	Name    string        `json:"name" validate:"required,max=120"`
	Phone   string        `json:"phone" validate:"max=32"`
}

func (c AddProviderCommand) Key() string                     { return addProviderKey }
func (c AddProviderCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type AddProviderHandler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (h *AddProviderHandler) Handle(ctx context.Context, cmd AddProviderCommand) (dto.Provider, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return dto.Provider{}, err
	}
	p, err := domainproviders.New(cmd.Type, cmd.Name, cmd.Phone, support.Now(h.Now))
	if err != nil {
		return dto.Provider{}, err
	}
	if err := unit.Providers().Create(ctx, p); err != nil {
		return dto.Provider{}, err
	}
	support.Logger(h.Logger).InfoContext(ctx, "provider added", "provider_id", p.ID, "type", p.Type)
	return dto.MapProvider(p), nil
}
