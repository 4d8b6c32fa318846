package models

// Student - запись ростера, как её отдаёт удалённый сервис.
type Student struct {
	RollNo    string `json:"roll_no"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}
