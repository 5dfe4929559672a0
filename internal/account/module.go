package account

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/stockmaster/internal/account/inbound"
	"github.com/shandysiswandi/stockmaster/internal/account/outbound/db"
	"github.com/shandysiswandi/stockmaster/internal/account/outbound/mq"
	"github.com/shandysiswandi/stockmaster/internal/account/usecase"
	otpentity "github.com/shandysiswandi/stockmaster/internal/otp/entity"
	"github.com/shandysiswandi/stockmaster/internal/pkg/clock"
	"github.com/shandysiswandi/stockmaster/internal/pkg/hash"
	"github.com/shandysiswandi/stockmaster/internal/pkg/instrument"
	"github.com/shandysiswandi/stockmaster/internal/pkg/jwt"
	"github.com/shandysiswandi/stockmaster/internal/pkg/messaging"
	"github.com/shandysiswandi/stockmaster/internal/pkg/router"
	"github.com/shandysiswandi/stockmaster/internal/pkg/uid"
	"github.com/shandysiswandi/stockmaster/internal/pkg/validator"
)

// OTP is what the account flows need from the OTP module.
type OTP interface {
	IsVerified(ctx context.Context, identifier string, purpose otpentity.Purpose) (bool, error)
	Consume(ctx context.Context, identifier string, purpose otpentity.Purpose) error
}

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	OTP        OTP                        `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	Password   hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:        db.NewDB(dep.DBConn, dep.Instrument),
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		OTP:           dep.OTP,
		Password:      dep.Password,
		UID:           dep.UID,
		Clock:         dep.Clock,
		Validator:     dep.Validator,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
