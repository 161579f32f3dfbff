package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dialtone/dialtone/pkg/config"
	"github.com/dialtone/dialtone/pkg/dialog"
	"github.com/dialtone/dialtone/pkg/stores"
)

func newBotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Work with the conversational bot",
		Long: `Compile, simulate, and publish the declared conversational bot.

The bot definition lives alongside the other declarations; these commands
operate on its compiled dialog model.`,
	}

	cmd.AddCommand(newBotCompileCommand())
	cmd.AddCommand(newBotSimulateCommand())
	cmd.AddCommand(newBotPublishCommand())

	return cmd
}

// loadBotModel loads the declarations and compiles the bot definition.
func loadBotModel() (*config.Declarations, *dialog.Model, error) {
	decls, err := loadDeclarations([]string{configPath})
	if err != nil {
		return nil, nil, err
	}
	if decls.Bot == nil {
		return nil, nil, fmt.Errorf("no bot declared in %s", configPath)
	}

	model, err := dialog.NewCompiler(log.Logger).Compile(decls.Bot)
	if err != nil {
		return nil, nil, err
	}
	return decls, model, nil
}

func newBotCompileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compile",
		Short: "Compile the bot definition into a dialog model",
		Long: `Compile the declared bot into a runnable dialog model.

Compilation validates locale consistency, slot type resolution, prompt
completeness, and slot priorities, then reports the model surface.`,
		Example: `  # Compile the bot declared in the configured path
  dialtone bot compile`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, model, err := loadBotModel()
			if err != nil {
				return err
			}

			locales := make([]string, 0, len(model.Locales))
			for id := range model.Locales {
				locales = append(locales, id)
			}
			sort.Strings(locales)

			fmt.Printf("Bot %q compiled\n", model.Name)
			fmt.Printf("  locales: %v\n", locales)

			intents := make([]string, 0, len(model.Intents))
			for name := range model.Intents {
				intents = append(intents, name)
			}
			sort.Strings(intents)
			for _, name := range intents {
				intent := model.Intents[name]
				fmt.Printf("  intent %q (%s): %d slots, elicitation %v\n",
					name, intent.Locale, len(intent.Slots), intent.ElicitationOrder)
			}

			return nil
		},
	}
}

func newBotSimulateCommand() *cobra.Command {
	var (
		locale string
		texts  []string
		botID  string
		alias  string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive an interactive session against the compiled bot",
		Long: `Compile the bot and run a conversational session against it.

Turns are taken from repeated --text flags when given, otherwise read line
by line from stdin. The session runs until it reaches a terminal state.`,
		Example: `  # Scripted turns
  dialtone bot simulate --text "I want to order a pizza" --text "large"

  # Interactive from stdin
  dialtone bot simulate --locale en_US`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, model, err := loadBotModel()
			if err != nil {
				return err
			}
			if locale == "" {
				if len(model.Locales) != 1 {
					return fmt.Errorf("bot has %d locales, pick one with --locale", len(model.Locales))
				}
				for id := range model.Locales {
					locale = id
				}
			}

			session, err := dialog.NewSession(model, locale)
			if err != nil {
				return err
			}

			log.Info().
				Str("session_id", session.ID()).
				Str("bot", model.Name).
				Str("locale", locale).
				Str("bot_id", botID).
				Str("alias", alias).
				Msg("session started")

			turn := func(input string) (bool, error) {
				resp, err := session.Recognize(cmd.Context(), input)
				if err != nil {
					return false, err
				}
				if resp.Message != "" {
					fmt.Printf("< %s\n", resp.Message)
				}
				fmt.Printf("  [%s", resp.State)
				if resp.Intent != "" {
					fmt.Printf(" intent=%s", resp.Intent)
				}
				if resp.SlotToElicit != "" {
					fmt.Printf(" eliciting=%s", resp.SlotToElicit)
				}
				fmt.Println("]")
				return resp.State.Terminal(), nil
			}

			if len(texts) > 0 {
				for _, input := range texts {
					fmt.Printf("> %s\n", input)
					done, err := turn(input)
					if err != nil {
						return err
					}
					if done {
						break
					}
				}
				return nil
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			fmt.Print("> ")
			for scanner.Scan() {
				input := strings.TrimSpace(scanner.Text())
				if input == "" {
					fmt.Print("> ")
					continue
				}
				done, err := turn(input)
				if err != nil {
					return err
				}
				if done {
					break
				}
				fmt.Print("> ")
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&locale, "locale", "", "Locale to converse in (required when multiple are declared)")
	cmd.Flags().StringArrayVar(&texts, "text", nil, "Scripted input turn (repeatable)")
	cmd.Flags().StringVar(&botID, "bot-id", "", "Bot identity from a previous apply (informational)")
	cmd.Flags().StringVar(&alias, "alias", "", "Alias to report the session against")

	return cmd
}

func newBotPublishCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Cut an immutable bot version and bind the declared aliases",
		Long: `Compile the bot, cut a new immutable version from the draft model,
and point every declared alias at it. Versions and alias bindings are
persisted in the state store.`,
		Example: `  # Publish and bind aliases declared in the bot definition
  dialtone bot publish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			decls, model, err := loadBotModel()
			if err != nil {
				return err
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			existing, err := store.ListBotVersions(ctx, model.Name)
			if err != nil {
				return err
			}

			next := 1
			if len(existing) > 0 {
				last, err := strconv.Atoi(existing[len(existing)-1].Version)
				if err != nil {
					return fmt.Errorf("corrupt version %q for bot %q: %w",
						existing[len(existing)-1].Version, model.Name, err)
				}
				next = last + 1
			}
			version := strconv.Itoa(next)

			payload, err := json.Marshal(model)
			if err != nil {
				return err
			}

			if err := store.SaveBotVersion(ctx, &stores.BotVersionRecord{
				BotName:   model.Name,
				Version:   version,
				Model:     string(payload),
				CreatedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}

			fmt.Printf("Published %q version %s\n", model.Name, version)

			aliases := make([]string, 0, len(decls.Bot.Aliases))
			for name := range decls.Bot.Aliases {
				aliases = append(aliases, name)
			}
			sort.Strings(aliases)

			for _, name := range aliases {
				if err := store.BindAlias(ctx, model.Name, name, version); err != nil {
					return err
				}
				fmt.Printf("  alias %q -> version %s\n", name, version)
			}

			return nil
		},
	}
}
