package credentials

// Services agrupa los services del dominio credentials.
type Services struct {
	Credentials CredentialService
}

func NewServices(d Deps) Services {
	return Services{Credentials: NewCredentialService(d)}
}
