package service

import (
	"context"
	"fmt"
	"strings"

	"stirka/internal/domain"
	"stirka/internal/models"

	"github.com/rs/zerolog"
)

// MachineService реестр машин. Мутации вызываются только из админских
// обработчиков; проверку роли делает слой API по сессии.
type MachineService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewMachineService(repo domain.Repository, logger *zerolog.Logger) *MachineService {
	return &MachineService{repo: repo, logger: logger}
}

func (s *MachineService) ListMachines(ctx context.Context) ([]*models.Machine, error) {
	return s.repo.ListMachines(ctx)
}

func (s *MachineService) GetMachine(ctx context.Context, id int64) (*models.Machine, error) {
	return s.repo.GetMachine(ctx, id)
}

func (s *MachineService) CreateMachine(ctx context.Context, name string) (*models.Machine, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: machine name is required", ErrValidation)
	}

	machine, err := s.repo.CreateMachine(ctx, name)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("machine_id", machine.ID).Str("name", name).Msg("machine created")
	return machine, nil
}

func (s *MachineService) SetMachineStatus(ctx context.Context, id int64, status string) error {
	if err := s.repo.SetMachineStatus(ctx, id, status); err != nil {
		return err
	}

	s.logger.Info().Int64("machine_id", id).Str("status", status).Msg("machine status updated")
	return nil
}
