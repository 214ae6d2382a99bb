package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Hyphaeic/radixrunner-wasm/region"
	"github.com/Hyphaeic/radixrunner-wasm/wasmrt"
)

var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "Write the built-in ticker module to a file.",
	Long: "`module --out ticker.wasm` writes the reference computation " +
		"module. It imports env.memory and increments the head counter " +
		"in a loop.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, _ := cmd.Flags().GetString("out")
		pages, _ := cmd.Flags().GetUint32("pages")
		shared, _ := cmd.Flags().GetBool("shared")

		if pages == 0 {
			return fmt.Errorf("pages must be positive")
		}

		bin := wasmrt.TickerModule(pages, shared)

		if err := os.WriteFile(out, bin, 0o644); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(bin), out)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(moduleCmd)
	moduleCmd.Flags().String("out", "ticker.wasm", "output file")
	moduleCmd.Flags().Uint32("pages", region.DefaultPages, "memory pages to import")
	moduleCmd.Flags().Bool("shared", true, "import shared memory")
}
