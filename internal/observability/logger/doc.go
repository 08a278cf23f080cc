// Package logger provee un logger Zap singleton con scoping por contexto.
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context scoping: cada request lleva su logger con request_id, method y
//     path (lo inyecta middlewares.WithLogging) sin crear un core nuevo.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Levels: debug, info, warn, error (LOG_LEVEL).
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "skillspassport"})
//	defer logger.Sync()
//
// En controllers/services:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Credentials.Mint"))
//	log.Info("credential minted", logger.CredentialID(c.ID), logger.Wallet(c.StudentWallet))
package logger
