package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/example/meeting-room-reservation/internal/application"
)

type capturingReservationRepo struct {
	created application.Reservation
}

func (c *capturingReservationRepo) GetReservation(ctx context.Context, id int64) (application.ReservationView, error) {
	return application.ReservationView{}, application.ErrNotFound
}

func (c *capturingReservationRepo) ListReservationsByDate(ctx context.Context, date time.Time) ([]application.Reservation, error) {
	return nil, nil
}

func (c *capturingReservationRepo) ListReservations(ctx context.Context, filter application.ReservationFilter) ([]application.ReservationView, error) {
	return nil, nil
}

func (c *capturingReservationRepo) CreateReservation(ctx context.Context, reservation application.Reservation) (application.ReservationView, error) {
	reservation.ID = 1
	c.created = reservation
	return application.ReservationView{Reservation: reservation}, nil
}

func (c *capturingReservationRepo) UpdateReservation(ctx context.Context, reservation application.Reservation) (application.ReservationView, error) {
	return application.ReservationView{Reservation: reservation}, nil
}

func (c *capturingReservationRepo) DeleteReservation(ctx context.Context, id int64) error {
	return nil
}

func TestServiceFactoryNewReservationService(t *testing.T) {
	factory := NewServiceFactory()
	repo := &capturingReservationRepo{}

	svc := factory.NewReservationService(ReservationServiceDeps{Reservations: repo})
	owner := NewUserFixture(WithUserID(7), WithUserDepartment(3))
	fixture := NewReservationFixture()

	view, err := svc.Create(context.Background(), application.CreateCommand{Principal: owner.Principal(), Draft: fixture.Draft()})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if view.ID != 1 || repo.created.OwnerUserID != 7 {
		t.Fatalf("unexpected reservation %+v", repo.created)
	}
	if !repo.created.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), repo.created.CreatedAt)
	}
}
