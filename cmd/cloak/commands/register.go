package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"cloak/internal/crypto"
	"cloak/internal/domain"
)

func registerCmd() *cobra.Command {
	var opkCount int
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Publish your pre-key bundle to the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			me, err := username()
			if err != nil {
				return err
			}
			id, err := appCtx.Identity.LoadIdentity(pass)
			if err != nil {
				return err
			}

			// Fresh signed pre-key, signature over its public half.
			spkPriv, spkPub, err := crypto.GenerateX25519()
			if err != nil {
				return err
			}
			spkID := domain.SignedPreKeyID("spk-" + randomID())
			sig := crypto.SignEd25519(id.EdPriv, spkPub.Slice())
			if err := appCtx.PreKeys.SaveSignedPreKey(spkID, spkPriv, spkPub, sig); err != nil {
				return err
			}
			if err := appCtx.PreKeys.SetCurrentSignedPreKeyID(spkID); err != nil {
				return err
			}

			pairs := make([]domain.OneTimePreKeyPair, 0, opkCount)
			for i := 0; i < opkCount; i++ {
				priv, pub, err := crypto.GenerateX25519()
				if err != nil {
					return err
				}
				pairs = append(pairs, domain.OneTimePreKeyPair{
					ID:   domain.OneTimePreKeyID("opk-" + randomID()),
					Priv: priv,
					Pub:  pub,
				})
			}
			if err := appCtx.PreKeys.SaveOneTimePreKeys(pairs); err != nil {
				return err
			}
			publics, err := appCtx.PreKeys.ListOneTimePreKeyPublics()
			if err != nil {
				return err
			}

			bundle := domain.PreKeyBundle{
				Identity:              domain.RemoteIdentity(me),
				IdentityKey:           id.XPub,
				SigningKey:            id.EdPub,
				SignedPreKeyID:        spkID,
				SignedPreKey:          spkPub,
				SignedPreKeySignature: sig,
				OneTimePreKeys:        publics,
			}
			if err := appCtx.Directory.RegisterPreKeyBundle(cmd.Context(), bundle); err != nil {
				return err
			}
			fmt.Printf("Registered %s with %d one-time pre-keys\n", me, len(publics))
			return nil
		},
	}
	cmd.Flags().IntVar(&opkCount, "opk-count", 10, "number of one-time pre-keys to publish")
	return cmd
}

func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
