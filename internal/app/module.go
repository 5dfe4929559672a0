package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/stockmaster/internal/account"
	"github.com/shandysiswandi/stockmaster/internal/notification"
	"github.com/shandysiswandi/stockmaster/internal/otp"
)

// initModules wires otp first; account is built on its verified challenges.
func (a *App) initModules() {
	otpUC, err := otp.New(otp.Dependency{
		Ctx:         a.ctx,
		DBConn:      a.dbConn,
		CacheConn:   a.cacheConn,
		MongoDB:     a.mongoDB,
		Goroutine:   a.goroutine,
		Router:      a.router,
		Mail:        a.mail,
		Config:      a.config,
		Instrument:  a.ins,
		UUID:        a.uuid,
		HMAC:        a.hmac,
		Clock:       a.clock,
		Validator:   a.validator,
		Idempotency: a.idemp,
	})
	if err != nil {
		slog.Error("failed to init module otp", "error", err)
		os.Exit(1)
	}

	if a.config.GetBool("modules.account.enabled") {
		if err := account.New(account.Dependency{
			DBConn:     a.dbConn,
			Messaging:  a.messaging,
			OTP:        otpUC,
			Router:     a.router,
			Instrument: a.ins,
			UID:        a.uid,
			Password:   a.password,
			Clock:      a.clock,
			Validator:  a.validator,
			JWT:        a.jwt,
		}); err != nil {
			slog.Error("failed to init module account", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.notification.enabled") {
		if err := notification.New(notification.Dependency{
			Ctx:        a.ctx,
			DBConn:     a.dbConn,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			UUID:       a.uuid,
			Clock:      a.clock,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
			Router:     a.router,
		}); err != nil {
			slog.Error("failed to init module notification", "error", err)
			os.Exit(1)
		}
	}
}
