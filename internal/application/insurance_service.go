package application

import (
	"context"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-flight-booking/internal/domain/insurance"
	"github.com/sanosuguru/go-flight-booking/internal/pkg/logger"
)

type InsuranceService struct {
	insuranceRepo insurance.Repository
}

func NewInsuranceService(ir insurance.Repository) *InsuranceService {
	return &InsuranceService{insuranceRepo: ir}
}

type CreateInsuranceInput struct {
	Name        string
	Description string
	Price       int
}

func (s *InsuranceService) CreateInsurance(ctx context.Context, input CreateInsuranceInput) (*insurance.Insurance, error) {
	ins := insurance.NewInsurance(input.Name, input.Description, input.Price)
	if err := ins.Validate(); err != nil {
		return nil, err
	}
	if err := s.insuranceRepo.Create(ctx, ins); err != nil {
		return nil, err
	}
	logger.Info("保険プランを作成", zap.String("insurance_id", ins.ID), zap.String("name", ins.Name))
	return ins, nil
}

func (s *InsuranceService) GetInsurance(ctx context.Context, id string) (*insurance.Insurance, error) {
	return s.insuranceRepo.GetByID(ctx, id)
}

func (s *InsuranceService) ListInsurances(ctx context.Context) ([]*insurance.Insurance, error) {
	return s.insuranceRepo.List(ctx)
}
