package event

const AccountPasswordResetTopic string = "account.password_reset"
const AccountPasswordResetConsumerNotification string = "account_password_reset_notification"

type AccountPasswordResetMessage struct {
	AccountID int64  `json:"account_id,string"`
	Email     string `json:"email"`
}
