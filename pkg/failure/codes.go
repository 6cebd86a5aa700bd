package failure

// Response codes reported in the status field of every response envelope.
const (
	// CodeOK is the status of a successful response.
	CodeOK = 200

	// CodeParameterValidationFailed is reported for validation failures.
	CodeParameterValidationFailed = 4001

	// CodePrivilegeNotPass is reported when the caller lacks a privilege.
	CodePrivilegeNotPass = 4003

	// CodeFatal is reported for infrastructure failures and for failures
	// that carry no code of their own.
	CodeFatal = 5000
)
