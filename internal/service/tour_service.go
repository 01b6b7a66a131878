package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/tunisia-tours/internal/domain"
	"github.com/diagnosis/tunisia-tours/internal/repo/postgres"
)

type TourService interface {
	ListTours(ctx context.Context) ([]domain.Tour, error)
	GetTour(ctx context.Context, id int64) (*domain.Tour, error)
}

type tourService struct {
	tours postgres.TourRepo
}

func NewTourService(tours postgres.TourRepo) TourService {
	return &tourService{tours: tours}
}

func (s *tourService) ListTours(ctx context.Context) ([]domain.Tour, error) {
	list, err := s.tours.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	return list, nil
}

func (s *tourService) GetTour(ctx context.Context, id int64) (*domain.Tour, error) {
	t, err := s.tours.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}
	return t, nil
}
