package handlers

// EnrollMFARequest starts an enrollment. EmailAddress is required for
// email methods and ignored for authenticator methods.
type EnrollMFARequest struct {
	Type         string `json:"type" validate:"required,oneof=authenticator email"`
	DisplayName  string `json:"display_name" validate:"required,min=1,max=64"`
	EmailAddress string `json:"email_address" validate:"omitempty,email"`
}

// ConfirmMFARequest proves possession of a newly enrolled factor.
type ConfirmMFARequest struct {
	Code string `json:"code" validate:"required,min=6,max=8"`
}
