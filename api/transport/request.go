package transport

// CredentialsRequest carries sign-up and sign-in payloads.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TaskCreateRequest is the payload for inserting a task. DueDate is the
// raw string form, bare date or timestamp.
type TaskCreateRequest struct {
	Title     string `json:"title"`
	Tag       string `json:"tag"`
	Priority  string `json:"priority"`
	Status    string `json:"status"`
	DueDate   string `json:"due_date"`
	CreatedAt string `json:"created_at"`
}

// TaskPatchRequest updates fields one by one; absent fields stay
// untouched.
type TaskPatchRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
	Tag       *string `json:"tag"`
	Priority  *string `json:"priority"`
	Status    *string `json:"status"`
	DueDate   *string `json:"due_date"`
}

// ThemeRequest sets the persisted theme preference.
type ThemeRequest struct {
	Theme string `json:"theme"`
}
