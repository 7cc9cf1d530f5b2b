package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"text2ppt/cmd/text2ppt/tui"
	"text2ppt/internal/signup"
)

var (
	loginUsername string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to keep chat history and receive presentations by email",
	Long: `Without --username the interactive sign-in page opens.

The password may also come from TEXT2PPT_PASSWORD.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		a, err := newApp(ctx, cfg, "")
		if err != nil {
			return err
		}
		defer a.Close()

		if loginUsername == "" {
			return runTUI(ctx, a, tui.Model.OpenLogin)
		}

		password := loginPassword
		if password == "" {
			password = os.Getenv("TEXT2PPT_PASSWORD")
		}
		id, err := signup.Login(ctx, a.client, a.session, loginUsername, password)
		if err != nil {
			return err
		}
		logger.Info("Signed in", zap.String("user", id.Username))
		fmt.Printf("✓ Signed in as %s\n", id.DisplayName())
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account (mobile number verified by OTP)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		a, err := newApp(ctx, cfg, "")
		if err != nil {
			return err
		}
		defer a.Close()

		return runTUI(ctx, a, tui.Model.OpenSignup)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the signed-in identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		a, err := newApp(ctx, cfg, "")
		if err != nil {
			return err
		}
		defer a.Close()

		id, signedIn := a.session.Current()
		if err := a.session.Clear(ctx); err != nil {
			return fmt.Errorf("failed to sign out: %w", err)
		}
		if !signedIn {
			fmt.Println("Not signed in.")
			return nil
		}
		fmt.Printf("✓ Signed out %s\n", id.Username)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		a, err := newApp(ctx, cfg, "")
		if err != nil {
			return err
		}
		defer a.Close()

		id, ok := a.session.Current()
		if !ok {
			fmt.Println("Not signed in.")
			return nil
		}
		fmt.Printf("Username: %s\n", id.Username)
		if id.FullName != "" {
			fmt.Printf("Name:     %s\n", id.FullName)
		}
		if id.Email != "" {
			fmt.Printf("Email:    %s\n", id.Email)
		}
		if id.Mobile != "" {
			fmt.Printf("Mobile:   %s\n", id.Mobile)
		}
		return nil
	},
}
