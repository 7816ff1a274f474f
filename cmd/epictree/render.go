package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"epictree/internal/api"
	"epictree/internal/config"
	"epictree/internal/render"
)

type layoutFlags struct {
	mode        string
	orientation string
	link        string
	stepPercent float64
	width       float64
	height      float64
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", "", "layout mode: cartesian or polar")
	cmd.Flags().StringVar(&f.orientation, "orientation", "", "cartesian orientation: vertical or horizontal")
	cmd.Flags().StringVar(&f.link, "link", "", "link style: diagonal, step, curve or line")
	cmd.Flags().Float64Var(&f.stepPercent, "step-percent", 0, "bend position of step links (0-1)")
	cmd.Flags().Float64Var(&f.width, "width", 0, "canvas width (0 sizes from the tree)")
	cmd.Flags().Float64Var(&f.height, "height", 0, "canvas height (0 sizes from the tree)")
}

func (f *layoutFlags) query() url.Values {
	values := url.Values{}
	setIfNotEmpty(values, "mode", f.mode)
	setIfNotEmpty(values, "orientation", f.orientation)
	setIfNotEmpty(values, "link", f.link)
	if f.stepPercent > 0 {
		values.Set("step_percent", strconv.FormatFloat(f.stepPercent, 'f', -1, 64))
	}
	if f.width > 0 {
		values.Set("width", strconv.FormatFloat(f.width, 'f', -1, 64))
	}
	if f.height > 0 {
		values.Set("height", strconv.FormatFloat(f.height, 'f', -1, 64))
	}
	return values
}

func newRenderCmd(cfg *config.Config) *cobra.Command {
	var layout layoutFlags
	var outPath string
	var noLegend bool
	var minimap bool
	var save bool

	cmd := &cobra.Command{
		Use:   "render [epic]",
		Short: "Render the epic tree to an SVG or PNG file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return fmt.Errorf("--out is required")
			}
			imageFormat, err := render.FormatFromPath(outPath)
			if err != nil {
				return err
			}
			query := layout.query()
			if noLegend {
				query.Set("legend", "false")
			}
			if minimap {
				query.Set("minimap", "true")
			}
			if save {
				query.Set("save", "true")
			}

			return withClient(cfg, func(client *api.Client) error {
				file, err := os.Create(outPath)
				if err != nil {
					return err
				}
				key, err := client.Render(cmd.Context(), epicArg(args), string(imageFormat), query, file)
				if err != nil {
					_ = file.Close()
					_ = os.Remove(outPath)
					return err
				}
				if err := file.Close(); err != nil {
					return err
				}
				if key != "" {
					_ = writePlain("snapshot: %s\n", key)
				}
				return writePlain("wrote %s\n", outPath)
			})
		},
	}

	layout.register(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (.svg or .png)")
	cmd.Flags().BoolVar(&noLegend, "no-legend", false, "omit the status legend")
	cmd.Flags().BoolVar(&minimap, "minimap", false, "draw the minimap when the tree overflows the viewport")
	cmd.Flags().BoolVar(&save, "save", false, "also keep the render on the server as a snapshot")
	return cmd
}

func newLayoutCmd(cfg *config.Config) *cobra.Command {
	var layout layoutFlags
	var minimapX, minimapY float64

	cmd := &cobra.Command{
		Use:   "layout [epic]",
		Short: "Print the computed node positions, link paths and minimap",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := layout.query()
			if cmd.Flags().Changed("minimap-x") || cmd.Flags().Changed("minimap-y") {
				query.Set("minimap_x", strconv.FormatFloat(minimapX, 'f', -1, 64))
				query.Set("minimap_y", strconv.FormatFloat(minimapY, 'f', -1, 64))
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Layout(cmd.Context(), epicArg(args), query)
				if err != nil {
					return err
				}
				return writeJSON(resp)
			})
		},
	}

	layout.register(cmd)
	cmd.Flags().Float64Var(&minimapX, "minimap-x", 0, "minimap click x; adds the matching scroll offsets")
	cmd.Flags().Float64Var(&minimapY, "minimap-y", 0, "minimap click y")
	return cmd
}
