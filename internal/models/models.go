package models

// Profile is the account summary returned by the auth service.
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Institution is a partner college listed by the content service.
type Institution struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Video is an uploaded video owned by the current user.
type Video struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	FileReference string `json:"file_reference"`
}

// VideoUpload carries a validated upload on its way to the content service.
type VideoUpload struct {
	Title       string
	Description string
	Filename    string
	Size        int64
	// FileReference is set when the file was staged elsewhere and only the
	// reference is forwarded.
	FileReference string
}

// Registration is the account creation payload accepted by the auth service.
type Registration struct {
	Username  string `json:"username" validate:"required,notblank,min=3,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
}

// LoginForm is the credential pair posted to the auth service.
type LoginForm struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required"`
}
