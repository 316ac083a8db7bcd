// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ExamReg Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/examreg/examreg/internal/config"
)

// NewRootCmd creates the root command for the ExamReg CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examreg",
		Short: "ExamReg - CSN exam registration portal",
		Long: `ExamReg is the student self-service portal for CSN exam
registration: account signup with institutional email validation,
login, and password reset over email.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			config.LoadDotenv()
		},
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
