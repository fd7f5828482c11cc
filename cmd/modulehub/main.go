package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "modulehub",
	Short: "Internal package registry API",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file loaded, using process environment")
		}
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, loginCmd, whoamiCmd, publishCmd, releaseCmd, packagesCmd, subscribeCmd, unsubscribeCmd, inboxCmd, watchCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalln(err.Error())
	}
}
