package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type AssignedMailData struct {
	FullName       string `json:"fullName"`
	ParentKind     string `json:"parentKind"`
	ParentName     string `json:"parentName"`
	AssignedByName string `json:"assignedByName"`
	Deadline       string `json:"deadline"`
}

type CompletedMailData struct {
	FullName     string `json:"fullName"`
	ParentKind   string `json:"parentKind"`
	ParentName   string `json:"parentName"`
	AssigneeName string `json:"assigneeName"`
}

type DeadlineMailData struct {
	FullName   string `json:"fullName"`
	ParentKind string `json:"parentKind"`
	ParentName string `json:"parentName"`
	Deadline   string `json:"deadline"`
}
