package utils

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionKeyOrderID     = "order_id"
	sessionKeyPhoneNumber = "phone_number"
)

// CheckoutSession is the per-user state of one checkout attempt: the order being
// paid for and the phone number entered for mobile money. It is created when the
// checkout stamps an order id and destroyed by Clear on completion or cancellation.
type CheckoutSession struct {
	session sessions.Session
}

func Checkout(c *gin.Context) *CheckoutSession {
	return &CheckoutSession{session: sessions.Default(c)}
}

func (cs *CheckoutSession) OrderID() (uint, bool) {
	v := cs.session.Get(sessionKeyOrderID)
	id, ok := v.(uint)
	return id, ok
}

func (cs *CheckoutSession) SetOrderID(id uint) error {
	cs.session.Set(sessionKeyOrderID, id)
	return cs.session.Save()
}

func (cs *CheckoutSession) PhoneNumber() (string, bool) {
	v := cs.session.Get(sessionKeyPhoneNumber)
	phone, ok := v.(string)
	return phone, ok && phone != ""
}

func (cs *CheckoutSession) SetPhoneNumber(phone string) error {
	cs.session.Set(sessionKeyPhoneNumber, phone)
	return cs.session.Save()
}

// Clear ends the checkout attempt. The flash survives the save so the next
// page can explain why the user landed there.
func (cs *CheckoutSession) Clear() error {
	cs.session.Delete(sessionKeyOrderID)
	cs.session.Delete(sessionKeyPhoneNumber)
	return cs.session.Save()
}

func (cs *CheckoutSession) Flash(message string) error {
	cs.session.AddFlash(message)
	return cs.session.Save()
}

func (cs *CheckoutSession) Flashes() []string {
	raw := cs.session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	messages := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			messages = append(messages, s)
		}
	}
	cs.session.Save()
	return messages
}
