package enums

// LoginOutcome is the enumerated result of an interactive login attempt.
type LoginOutcome string

const (
	LoginSuccess             LoginOutcome = "success"
	LoginInvalid             LoginOutcome = "invalid"
	LoginLocked              LoginOutcome = "locked"
	LoginSecondFactorNeeded  LoginOutcome = "second_factor_required"
	LoginInvalidSecondFactor LoginOutcome = "invalid_second_factor"
)

// String implements fmt.Stringer.
func (o LoginOutcome) String() string {
	return string(o)
}

// Succeeded reports whether the attempt established a session.
func (o LoginOutcome) Succeeded() bool {
	return o == LoginSuccess
}
