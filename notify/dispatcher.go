package notify

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"gorm.io/gorm"

	"github.com/godwins3/beta-store/models"
)

// ErrOrderNotFound marks a notification that referenced an order the store does
// not have. The dispatcher logs it and moves on; no email is sent.
var ErrOrderNotFound = errors.New("order not found")

type event string

const (
	orderCreated   event = "created"
	orderConfirmed event = "confirmed"
)

type job struct {
	event   event
	orderID uint
}

// DeadLetter records one notification the dispatcher gave up on, with the error
// that killed it. There are no retries; the log is the observable failure signal.
type DeadLetter struct {
	Event   string
	OrderID uint
	Err     error
}

// Dispatcher delivers order emails off the request path. OrderCreated and
// OrderConfirmed enqueue and return immediately; worker goroutines do the order
// lookup and the send. Failures never reach the caller.
type Dispatcher struct {
	db      *gorm.DB
	mailer  Mailer
	jobs    chan job
	wg      sync.WaitGroup
	workers int

	mu          sync.Mutex
	deadLetters []DeadLetter
}

func NewDispatcher(db *gorm.DB, mailer Mailer, workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		db:      db,
		mailer:  mailer,
		jobs:    make(chan job, 64),
		workers: workers,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				if err := d.deliver(j); err != nil {
					log.Printf("notify: %s email for order %d failed: %v", j.event, j.orderID, err)
					d.mu.Lock()
					d.deadLetters = append(d.deadLetters, DeadLetter{Event: string(j.event), OrderID: j.orderID, Err: err})
					d.mu.Unlock()
				}
			}
		}()
	}
}

// Stop drains the queue and waits for in-flight sends.
func (d *Dispatcher) Stop() {
	close(d.jobs)
	d.wg.Wait()
}

// OrderCreated queues the order-placed email. Never blocks; if the queue is
// full the notification is dead-lettered instead.
func (d *Dispatcher) OrderCreated(orderID uint) {
	d.enqueue(job{event: orderCreated, orderID: orderID})
}

// OrderConfirmed queues the payment-confirmed email.
func (d *Dispatcher) OrderConfirmed(orderID uint) {
	d.enqueue(job{event: orderConfirmed, orderID: orderID})
}

func (d *Dispatcher) enqueue(j job) {
	select {
	case d.jobs <- j:
	default:
		log.Printf("notify: queue full, dropping %s email for order %d", j.event, j.orderID)
		d.mu.Lock()
		d.deadLetters = append(d.deadLetters, DeadLetter{Event: string(j.event), OrderID: j.orderID, Err: errors.New("queue full")})
		d.mu.Unlock()
	}
}

func (d *Dispatcher) deliver(j job) error {
	var order models.Order
	if err := d.db.First(&order, j.orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id %d", ErrOrderNotFound, j.orderID)
		}
		return err
	}

	subject := fmt.Sprintf("Order nr. %s", order.OrderNumber)
	var body string
	switch j.event {
	case orderConfirmed:
		body = fmt.Sprintf("Dear %s,\n\nYour order has been confirmed. Your order ID is %s.",
			order.FirstName, order.OrderNumber)
	default:
		body = fmt.Sprintf("Dear %s,\n\nYou have successfully placed an order. Your order number is %s.",
			order.FirstName, order.OrderNumber)
	}

	return d.mailer.Send(order.Email, subject, body)
}

// DeadLetters returns a copy of everything that failed to deliver so far.
func (d *Dispatcher) DeadLetters() []DeadLetter {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DeadLetter, len(d.deadLetters))
	copy(out, d.deadLetters)
	return out
}
