package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fpang/genprompt/internal/chat"
	"github.com/fpang/genprompt/internal/cli"
	"github.com/fpang/genprompt/internal/graph"
	"github.com/fpang/genprompt/internal/logging"
	"github.com/fpang/genprompt/internal/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	modelFlag string
	traceFlag bool

	moodsFlag  []string
	cameraFlag string
	notesFlag  string

	targetFlag   string
	promptFlag   string
	feedbackFlag string
	stateFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "genprompt",
	Short: "Prompt co-pilot for image and video generation",
	Long: `GenPrompt turns a reference photo into a text-to-image prompt (Prompt A),
turns a generated image into a video-direction prompt (Prompt B), and refines
either prompt from plain-language feedback.

Each command prints the resulting session state as JSON.

Examples:
  genprompt analyze photo.jpg
  genprompt video render.png --mood serene --camera "slow dolly in"
  genprompt refine --target image --prompt "a lighthouse at dusk" --feedback "stormier sky"
  genprompt refine --state session.json --feedback "make it slower"`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [image]",
	Short: "Analyze a reference photo and write Prompt A",
	Long: `Analyze sends the photo (with any EXIF camera, date and location hints) to
the visual analyst, then synthesizes a text-to-image prompt from the analysis.
Without an image argument a file picker opens.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

var videoCmd = &cobra.Command{
	Use:   "video [image]",
	Short: "Write Prompt B for a generated image",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVideo,
}

var refineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Revise Prompt A or Prompt B from feedback",
	Long: `Refine rewrites one prompt according to feedback. The prompt comes from
--prompt, or from a state file written by a previous command (--state).
Missing feedback is read from the terminal.`,
	Args: cobra.NoArgs,
	RunE: runRefine,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", chat.GetModelName(), "Gemini model to use (e.g., gemini-3-flash-preview, gemini-3-pro-preview)")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "Print the step trace to stderr")

	videoCmd.Flags().StringSliceVar(&moodsFlag, "mood", nil, "Mood for the video (repeatable)")
	videoCmd.Flags().StringVar(&cameraFlag, "camera", "", "Preferred camera movement")
	videoCmd.Flags().StringVar(&notesFlag, "notes", "", "Additional direction")

	refineCmd.Flags().StringVarP(&targetFlag, "target", "t", "", `Prompt to refine: "image" or "video"`)
	refineCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Prompt text to refine")
	refineCmd.Flags().StringVarP(&feedbackFlag, "feedback", "f", "", "What to change")
	refineCmd.Flags().StringVar(&stateFlag, "state", "", "Session state JSON from a previous run")

	rootCmd.AddCommand(analyzeCmd, videoCmd, refineCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	image, err := imageArg(args, "Select a reference photo")
	if err != nil {
		return err
	}
	ctx, g := cli.InitGraph(modelFlag)
	return run(ctx, g, session.State{OriginalImage: image})
}

func runVideo(cmd *cobra.Command, args []string) error {
	image, err := imageArg(args, "Select the generated image")
	if err != nil {
		return err
	}
	brief := &session.VideoCreativeBrief{
		Moods:           moodsFlag,
		CameraMovement:  cameraFlag,
		AdditionalNotes: notesFlag,
	}
	ctx, g := cli.InitGraph(modelFlag)
	return run(ctx, g, session.State{GeneratedImage: image, VideoCreativeBrief: brief})
}

func runRefine(cmd *cobra.Command, args []string) error {
	st, err := refineState()
	if err != nil {
		return err
	}
	if st.UserFeedback == "" {
		fb, err := cli.PromptForLine(os.Stdin, os.Stderr, "Feedback", "")
		if err != nil {
			return err
		}
		if fb == "" {
			return errors.New("feedback is required")
		}
		st.UserFeedback = fb
	}
	if err := st.Validate(); err != nil {
		return err
	}

	ctx, g := cli.InitGraph(modelFlag)
	return run(ctx, g, st)
}

// refineState assembles the refinement input from --state and the flags.
// Flags override values from the state file.
func refineState() (session.State, error) {
	var st session.State
	if stateFlag != "" {
		data, err := os.ReadFile(stateFlag)
		if err != nil {
			return st, fmt.Errorf("read state: %w", err)
		}
		if err := json.Unmarshal(data, &st); err != nil {
			return st, fmt.Errorf("parse state %s: %w", stateFlag, err)
		}
	}

	target, err := session.ParsePromptTarget(strings.ToLower(targetFlag))
	if err != nil {
		return st, err
	}
	if target == session.TargetNone {
		target = inferTarget(st)
	}
	if target == session.TargetNone {
		return st, errors.New(`--target is required: "image" or "video"`)
	}
	st.ActivePromptForRefinement = target

	if promptFlag != "" {
		switch target {
		case session.TargetImage:
			if st.ImagePrompt != nil {
				st.ImagePrompt.PromptBody = promptFlag
			} else {
				st.ImagePrompt = session.NewImagePrompt(promptFlag)
			}
		case session.TargetVideo:
			st.VideoPrompt = promptFlag
		}
	}
	if feedbackFlag != "" {
		st.UserFeedback = strings.TrimSpace(feedbackFlag)
	}
	return st, nil
}

// inferTarget picks the only prompt present in st, preferring the video
// prompt since it is written last.
func inferTarget(st session.State) session.PromptTarget {
	switch {
	case st.ActivePromptForRefinement != session.TargetNone:
		return st.ActivePromptForRefinement
	case st.VideoPrompt != "":
		return session.TargetVideo
	case st.ImagePrompt != nil:
		return session.TargetImage
	case promptFlag != "":
		return session.TargetImage
	default:
		return session.TargetNone
	}
}

// imageArg reads the image named by args, or one chosen in a file picker.
func imageArg(args []string, title string) ([]byte, error) {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		picked, err := cli.PickImage(title)
		if err != nil {
			return nil, err
		}
		path = picked
	}
	log.Debug().Str("path", path).Msg("Reading image")
	return cli.ReadImage(path)
}

func run(ctx context.Context, g *graph.Graph, st session.State) error {
	result, trace, err := g.Invoke(ctx, st)
	if traceFlag {
		fmt.Fprint(os.Stderr, cli.FormatTrace(trace))
	}
	if err != nil {
		return err
	}
	return cli.PrintJSON(os.Stdout, result)
}
