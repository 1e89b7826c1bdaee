package discord

import (
	"bytes"
	"fmt"
	"strconv"

	gotils_strconv "github.com/savsgio/gotils/strconv"
)

// Permission is the bit position of a single permission.
type Permission uint8

const (
	PermissionCreateInstantInvite Permission = 0
	PermissionKickMembers         Permission = 1
	PermissionBanMembers          Permission = 2
	PermissionAdministrator       Permission = 3
	PermissionManageChannels      Permission = 4
	PermissionManageServer        Permission = 5
	PermissionAddReactions        Permission = 6
	PermissionReadMessages        Permission = 10
	PermissionSendMessages        Permission = 11
	PermissionSendTTSMessages     Permission = 12
	PermissionManageMessages      Permission = 13
	PermissionEmbedLinks          Permission = 14
	PermissionAttachFiles         Permission = 15
	PermissionReadMessageHistory  Permission = 16
	PermissionMentionEveryone     Permission = 17
	PermissionExternalEmojis      Permission = 18
	PermissionVoiceConnect        Permission = 20
	PermissionVoiceSpeak          Permission = 21
	PermissionVoiceMuteMembers    Permission = 22
	PermissionVoiceDeafenMembers  Permission = 23
	PermissionVoiceMoveMembers    Permission = 24
	PermissionVoiceUseVAD         Permission = 25
	PermissionChangeNickname      Permission = 26
	PermissionManageNicknames     Permission = 27
	PermissionManageRoles         Permission = 28
	PermissionManageWebhooks      Permission = 29
	PermissionManageEmojis        Permission = 30
)

// Permissions is a packed permission bitmask.
type Permissions uint64

// Has reports whether the permission bit is set.
func (p Permissions) Has(permission Permission) bool {
	return p&(1<<permission) != 0
}

// Set returns the bitmask with the permission set or cleared.
func (p Permissions) Set(permission Permission, value bool) Permissions {
	if value {
		return p | 1<<permission
	}

	return p &^ (1 << permission)
}

func (p *Permissions) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || bytes.Equal(b, null) {
		*p = 0

		return nil
	}

	if b[0] == '"' && len(b) >= 2 {
		b = b[1 : len(b)-1]
	}

	i, err := strconv.ParseUint(gotils_strconv.B2S(b), 10, 64)
	if err != nil {
		return fmt.Errorf("failed to unmarshal permissions: %w", err)
	}

	*p = Permissions(i)

	return nil
}

func (p Permissions) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 22)

	buf = append(buf, '"')
	buf = strconv.AppendUint(buf, uint64(p), 10)
	buf = append(buf, '"')

	return buf, nil
}
