package models

// ClientSummary is the read-only display projection of a client supplied by
// the profile collaborator. The core stores only client ids.
type ClientSummary struct {
	ClientID  string `dynamodbav:"clientId" json:"clientId" gorm:"primaryKey;size:64"`
	ManagerID string `dynamodbav:"managerId" json:"managerId" gorm:"size:64;not null;index"`
	Name      string `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Photo     string `dynamodbav:"photo,omitempty" json:"photo,omitempty"`
	Job       string `dynamodbav:"job,omitempty" json:"job,omitempty"`
	School    string `dynamodbav:"school,omitempty" json:"school,omitempty"`
	Active    bool   `dynamodbav:"active" json:"active" gorm:"not null"`
}

func (ClientSummary) TableName() string { return "clients" }
