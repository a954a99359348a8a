package cmd

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"carveout/internal/core"
	"carveout/internal/hittest"
	"carveout/internal/tools"
	"carveout/pkg/domain"
)

var (
	drawPoints string
	drawColor  string
	drawWidth  float32

	extendPoints string

	eraseAt     string
	eraseRadius float32

	cutLoop string

	moveDX     float32
	moveDY     float32
	moveRotate float64
	moveScale  float32

	restyleColor string
	restyleWidth float32
)

var drawCmd = &cobra.Command{
	Use:   "draw <name>",
	Short: "Draw a stroke with the pen",
	Long: `Feed pointer samples to the pen tool. Samples closer than one unit to
the previous one are dropped, and the whole stroke is a single undo step.

Example:
  carveout draw sketch --points "0,0;10,0;10,10" --color "#ff0000" --width 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pts, err := parsePoints(drawPoints)
		if err != nil {
			return err
		}
		if len(pts) < 2 {
			return fmt.Errorf("--points needs at least two samples")
		}
		color, err := parseColor(drawColor)
		if err != nil {
			return err
		}
		var id domain.StrokeID
		_, err = editDocument(context.Background(), args[0], func(m *core.ContentManager) error {
			pen := tools.NewPen(tools.PenConfig{Color: color, Width: drawWidth})
			pen.Begin(pts[0])
			for _, p := range pts[1:] {
				if err := pen.Sample(m, p); err != nil {
					return err
				}
			}
			var ok bool
			if id, ok = pen.End(); !ok {
				return fmt.Errorf("samples span less than %g units, nothing drawn", tools.SampleTolerance)
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var extendCmd = &cobra.Command{
	Use:   "extend <name> <stroke>",
	Short: "Append points to an existing stroke",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseStrokeID(args[1])
		if err != nil {
			return err
		}
		pts, err := parsePoints(extendPoints)
		if err != nil {
			return err
		}
		ext, err := core.NewExtendStroke(id, pts)
		if err != nil {
			return err
		}
		_, err = editDocument(context.Background(), args[0], func(m *core.ContentManager) error {
			return m.RunCmd(ext)
		})
		return err
	},
}

var eraseCmd = &cobra.Command{
	Use:   "erase <name>",
	Short: "Erase every stroke under a point",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := parsePoint(eraseAt)
		if err != nil {
			return err
		}
		var erased []domain.StrokeID
		_, err = editDocument(context.Background(), args[0], func(m *core.ContentManager) error {
			idx := hittest.New()
			idx.Rebuild(m.Access())
			erased, err = tools.Eraser{Radius: eraseRadius}.Apply(m, idx, at)
			return err
		})
		if err != nil {
			return err
		}
		for _, id := range erased {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var cutCmd = &cobra.Command{
	Use:   "cut <name>",
	Short: "Remove every stroke inside a loop in one step",
	Long: `Remove the strokes lying inside or crossing a closed loop.

Example:
  carveout cut sketch --loop "0,0;20,0;20,20;0,20"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pts, err := parsePoints(cutLoop)
		if err != nil {
			return err
		}
		if len(pts) < 3 {
			return fmt.Errorf("--loop needs at least three points")
		}
		var removed []domain.StrokeID
		_, err = editDocument(context.Background(), args[0], func(m *core.ContentManager) error {
			idx := hittest.New()
			idx.Rebuild(m.Access())
			var loop tools.LoopSelect
			loop.Begin(pts[0])
			for _, p := range pts[1:] {
				loop.Add(p)
			}
			removed, err = loop.Finish(m, idx)
			return err
		})
		if err != nil {
			return err
		}
		for _, id := range removed {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

// selection returns ids, or every live stroke when ids is empty.
func selection(m *core.ContentManager, args []string) (tools.Selection, error) {
	if len(args) == 0 {
		return tools.Selection(m.Access().StrokeIDs()), nil
	}
	ids, err := parseStrokeIDs(args)
	if err != nil {
		return nil, err
	}
	return tools.Selection(ids), nil
}

var moveCmd = &cobra.Command{
	Use:   "move <name> [stroke...]",
	Short: "Rotate, scale and translate strokes in one step",
	Long: `Transform the given strokes, or all strokes when none are named.
Rotation (degrees, counter-clockwise) and scaling happen about the center of
the selection, followed by the translation.

Example:
  carveout move sketch 0:0 1:0 --rotate 90 --dx 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := editDocument(context.Background(), args[0], func(m *core.ContentManager) error {
			sel, err := selection(m, args[1:])
			if err != nil {
				return err
			}
			c, ok := sel.Center(m.Access())
			if !ok {
				return core.ErrEmptySelection
			}
			t := domain.Identity
			if moveRotate != 0 {
				t = t.Then(domain.Rotate(moveRotate*math.Pi/180, c))
			}
			if moveScale != 1 {
				t = t.Then(domain.Scale(moveScale, moveScale, c))
			}
			t = t.Then(domain.Translate(moveDX, moveDY))
			if t.IsIdentity() {
				return errors.New("nothing to do: pass --dx, --dy, --rotate or --scale")
			}
			return sel.Transform(m, t)
		})
		return err
	},
}

var restyleCmd = &cobra.Command{
	Use:   "restyle <name> [stroke...]",
	Short: "Set color and width of strokes in one step",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		color, err := parseColor(restyleColor)
		if err != nil {
			return err
		}
		_, err = editDocument(context.Background(), args[0], func(m *core.ContentManager) error {
			sel, err := selection(m, args[1:])
			if err != nil {
				return err
			}
			return sel.Restyle(m, core.Style{Color: color, Width: restyleWidth})
		})
		return err
	},
}

func init() {
	drawCmd.Flags().StringVar(&drawPoints, "points", "", "pointer samples as x,y;x,y;...")
	drawCmd.Flags().StringVar(&drawColor, "color", "#ffffff", "stroke color as #rrggbb")
	drawCmd.Flags().Float32Var(&drawWidth, "width", 1, "stroke width multiplier")
	_ = drawCmd.MarkFlagRequired("points")

	extendCmd.Flags().StringVar(&extendPoints, "points", "", "points to append as x,y;x,y;...")
	_ = extendCmd.MarkFlagRequired("points")

	eraseCmd.Flags().StringVar(&eraseAt, "at", "", "eraser position as x,y")
	eraseCmd.Flags().Float32Var(&eraseRadius, "radius", 1, "eraser radius")
	_ = eraseCmd.MarkFlagRequired("at")

	cutCmd.Flags().StringVar(&cutLoop, "loop", "", "loop outline as x,y;x,y;...")
	_ = cutCmd.MarkFlagRequired("loop")

	moveCmd.Flags().Float32Var(&moveDX, "dx", 0, "horizontal offset")
	moveCmd.Flags().Float32Var(&moveDY, "dy", 0, "vertical offset")
	moveCmd.Flags().Float64Var(&moveRotate, "rotate", 0, "rotation in degrees")
	moveCmd.Flags().Float32Var(&moveScale, "scale", 1, "uniform scale factor")

	restyleCmd.Flags().StringVar(&restyleColor, "color", "#ffffff", "stroke color as #rrggbb")
	restyleCmd.Flags().Float32Var(&restyleWidth, "width", 1, "stroke width multiplier")

	rootCmd.AddCommand(drawCmd, extendCmd, eraseCmd, cutCmd, moveCmd, restyleCmd)
}
