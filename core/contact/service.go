package contact

import (
	"context"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/schooloffice/core"
)

var (
	// errors
	ErrNotFound = errors.New("contact message not found")

	NowFunc = time.Now // mockable
)

const notificationTemplate = "contact_message"

type (
	Repository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		GetMessage(ctx context.Context, id int) (Message, error)
		// QueryMessages returns messages newest first.
		QueryMessages(ctx context.Context, filter QueryFilter) ([]Message, error)
		SetRead(ctx context.Context, id int, isRead bool) (Message, error)
		DeleteMessages(ctx context.Context, ids []int) (int, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

// Create stores a public submission and notifies the school's admin mailbox, if any.
func (svc *Service) Create(ctx context.Context, nm NewMessage) (Message, error) {
	msg, err := svc.repo.CreateMessage(ctx, Message{
		Name:      nm.Name,
		Email:     nm.Email,
		Phone:     nm.Phone,
		Subject:   nm.Subject,
		Message:   nm.Message,
		CreatedAt: NowFunc().UTC(),
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "creating contact message")
	}
	svc.notifyAdmin(msg)
	return msg, nil
}

func (svc *Service) notifyAdmin(msg Message) {
	if svc.conf.AdminEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: svc.conf.AdminEmail}},
		Subject:      "New contact message: " + msg.Subject,
		TemplateName: notificationTemplate,
		TemplateData: map[string]interface{}{
			"AppName": svc.conf.AppName,
			"Message": msg,
		},
	})
}

func (svc *Service) GetByID(ctx context.Context, id int) (Message, error) {
	return svc.repo.GetMessage(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Message, error) {
	return svc.repo.QueryMessages(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id int, um UpdateMessage) (Message, error) {
	if um.IsRead == nil {
		return svc.repo.GetMessage(ctx, id)
	}
	return svc.repo.SetRead(ctx, id, *um.IsRead)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) (int, error) {
	return svc.repo.DeleteMessages(ctx, ids)
}
