package contact_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooloffice/core/contact"
	"github.com/trezcool/schooloffice/tests"
)

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	nm := contact.NewMessage{Name: "Neema", Email: "neema@mail.test", Subject: "Fees", Message: "When are fees due?"}

	t.Run("notifies the admin", func(t *testing.T) {
		env := testutil.NewEnv()
		msg, err := env.Contacts.Create(ctx, nm)
		require.NoError(t, err)
		assert.NotZero(t, msg.ID)
		assert.False(t, msg.IsRead)

		sent := env.Mail.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "admin@school.test", sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, "Neema <neema@mail.test>")
		assert.Contains(t, sent[0].TextContent, "School Office")
	})

	t.Run("no admin mailbox", func(t *testing.T) {
		env := testutil.NewEnv()
		env.Conf.AdminEmail = ""
		_, err := env.Contacts.Create(ctx, nm)
		require.NoError(t, err)
		assert.Empty(t, env.Mail.Sent())
	})
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	msg, err := env.Contacts.Create(ctx, contact.NewMessage{Name: "Neema", Email: "neema@mail.test", Subject: "Fees", Message: "Hello"})
	require.NoError(t, err)

	read := true
	msg, err = env.Contacts.Update(ctx, msg.ID, contact.UpdateMessage{IsRead: &read})
	require.NoError(t, err)
	assert.True(t, msg.IsRead)

	msg, err = env.Contacts.Update(ctx, msg.ID, contact.UpdateMessage{})
	require.NoError(t, err)
	assert.True(t, msg.IsRead)

	_, err = env.Contacts.Update(ctx, 999, contact.UpdateMessage{IsRead: &read})
	assert.Equal(t, contact.ErrNotFound, err)

	unread := false
	msgs, err := env.Contacts.Query(ctx, contact.QueryFilter{IsRead: &unread})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
