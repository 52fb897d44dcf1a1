// Package model はドメインモデルを定義する。
package model

// 以下はバックエンドAPIのレスポンスをそのまま受け渡すためのDTO。
// ゲートウェイ側では振る舞いを持たない。

// Reporter は報告者を表す。
type Reporter struct {
	ID               int64  `json:"id"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email"`
	JobTitle         string `json:"job_title"`
	PhoneNumber      string `json:"phone_number"`
	HospitalName     string `json:"hospital_name"`
	HospitalAddress  string `json:"hospital_address"`
	RegistrationDate string `json:"registration_date"`
}

// Patient は患者を表す。
type Patient struct {
	ID                  int64   `json:"id"`
	FirstName           string  `json:"first_name"`
	LastName            string  `json:"last_name"`
	DateOfBirth         string  `json:"date_of_birth"`
	Gender              string  `json:"gender"`
	MedicalRecordNumber string  `json:"medical_record_number"`
	PatientAddress      string  `json:"patient_address"`
	EmergencyContact    *string `json:"emergency_contact,omitempty"`
}

// Disease は疾病情報を表す。
type Disease struct {
	ID              int64    `json:"id"`
	DiseaseName     string   `json:"disease_name"`
	DiseaseCategory string   `json:"disease_category"`
	DateDetected    string   `json:"date_detected"`
	Symptoms        []string `json:"symptoms"`
	SeverityLevel   string   `json:"severity_level"`
	LabResults      *string  `json:"lab_results,omitempty"`
	TreatmentStatus string   `json:"treatment_status"`
}

// Report は症例報告を表す。
type Report struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt *string   `json:"updated_at"`
	Reporter  *Reporter `json:"reporter"`
	Patients  []Patient `json:"patients"`
	Disease   *Disease  `json:"disease"`
}
