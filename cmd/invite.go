package cmd

import (
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/hubchat/server/internal/auth"
	"github.com/hubchat/server/internal/db"
	"github.com/spf13/cobra"
)

var (
	inviteMaxUses int
	inviteTTL     time.Duration
	inviteNote    string
	inviteAdmin   bool
)

// inviteCmd represents the create-invite command. The first account on a
// fresh deployment comes from `create-invite --admin`.
var inviteCmd = &cobra.Command{
	Use:   "create-invite",
	Short: "Mint an invite token directly against the database",
	Args:  cobra.MaximumNArgs(0),
	Run:   generateInvite,
}

func init() {
	inviteCmd.Flags().IntVar(&inviteMaxUses, "max-uses", 1, "number of accounts the invite can create")
	inviteCmd.Flags().DurationVar(&inviteTTL, "ttl", auth.DefaultInviteTTL, "how long the invite stays redeemable")
	inviteCmd.Flags().StringVar(&inviteNote, "note", "", "operator note stored with the invite")
	inviteCmd.Flags().BoolVar(&inviteAdmin, "admin", false, "accounts created from this invite get the admin role")
	rootCmd.AddCommand(inviteCmd)
}

func generateInvite(_ *cobra.Command, _ []string) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	authSvc := auth.NewService(db.GetDB(), logger)

	inv, err := authSvc.CreateInvite("", inviteTTL, inviteMaxUses, inviteNote, inviteAdmin)
	if err != nil {
		log.Fatalf("error creating invite: %v", err)
	}
	log.Printf("Generated invite token: %s (uses: %d, expires: %s)",
		inv.Token, inv.MaxUses, time.UnixMilli(inv.ExpiresAt).Format(time.RFC3339))
}
