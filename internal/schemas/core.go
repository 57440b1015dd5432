// Package schemas contains the structs stored in the database and held in
// server memory. Client-visible shapes live in schemas/public.
package schemas

// User stores information about a registered account.
type User struct {
	// for DB storage, never changes
	Id string

	// public username. unique across the deployment
	Handle string

	DisplayName string

	// parsed from roles_json. contains "admin" for administrators
	Roles []string

	// bcrypt digest, never sent to clients
	PasswordHash string

	// unix ms
	CreatedAt int64
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	for _, r := range u.Roles {
		if r == "admin" {
			return true
		}
	}
	return false
}

// Invite is a redemption token minted by an admin (or the CLI during
// bootstrap). RemainingUses is decremented atomically with user creation
// and never goes negative.
type Invite struct {
	Token           string
	CreatedByUserId string
	MaxUses         int
	RemainingUses   int

	// unix ms. an invite past this instant is rejected, never deleted
	ExpiresAt int64

	Note string

	// bootstrap invites mint admin accounts
	GrantsAdmin bool

	CreatedAt int64
}

// Session maps an opaque token to a user so a reconnecting client can
// resume identity without re-sending credentials. Sessions have no
// server-side expiry; sign-out is a client-local action.
type Session struct {
	Token     string
	UserId    string
	CreatedAt int64
}

// Hub is the top-level grouping container for channels.
type Hub struct {
	Id              string
	Name            string
	Description     string
	Visibility      string // "public" | "private"
	CreatedByUserId string
	CreatedAt       int64
}

// Channel is a named space within a hub, either text or voice.
// LastSeq is the persisted per-channel sequence counter; it only moves
// forward, so message ordering survives restarts.
type Channel struct {
	Id         string
	HubId      string
	Kind       string // "text" | "voice"
	Name       string
	Visibility string
	LastSeq    int64
	CreatedAt  int64
}

// Membership is the (channel, user) relation gating sends, reads and
// broadcast targeting.
type Membership struct {
	ChannelId string
	UserId    string
	JoinedAt  int64
}

// Message is immutable once created. Seq is assigned at persist time and
// is strictly increasing and gapless within its channel.
type Message struct {
	Id          string
	ChannelId   string
	UserId      string
	UserHandle  string
	Text        string
	ClientMsgId string
	Seq         int64
	Ts          int64
}

// SearchHit is a message matched by a full-text query plus a generated
// snippet highlighting the match.
type SearchHit struct {
	Message Message
	Snippet string
}

// ICEConfig is handed to call participants so they can configure their
// local WebRTC stack. The server never dials these itself.
type ICEConfig struct {
	StunUrls       []string `json:"stun_urls"`
	TurnUrls       []string `json:"turn_urls"`
	TurnUsername   string   `json:"turn_username"`
	TurnCredential string   `json:"turn_credential"`
}
