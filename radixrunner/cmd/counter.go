package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Hyphaeic/radixrunner-wasm/codec"
)

var decodeCmd = &cobra.Command{
	Use:   "decode COUNTER",
	Short: "Split a packed counter into its six fields.",
	Long: "`decode 0x0000000000001000` prints the fields of the counter. " +
		"The counter may be decimal, or hexadecimal with a 0x prefix.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		counter, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid counter %q: %w", args[0], err)
		}

		fields := codec.Decode(counter)

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, codec.Format(counter))

		for i, v := range fields {
			fmt.Fprintf(out, "field %d (%2d bits): %d\n", i, codec.Widths[i], v)
		}

		return nil
	},
}

var encodeCmd = &cobra.Command{
	Use:   "encode F0 F1 F2 F3 F4 F5",
	Short: "Pack six field values into a counter.",
	Args:  cobra.ExactArgs(codec.NumFields),
	RunE: func(cmd *cobra.Command, args []string) error {
		var fields codec.Fields

		for i, arg := range args {
			v, err := strconv.ParseUint(arg, 0, 32)
			if err != nil {
				return fmt.Errorf("invalid field %d %q: %w", i, arg, err)
			}

			fields[i] = uint32(v)
		}

		if !fields.Valid() {
			return fmt.Errorf("fields %s do not fit widths %v", fields, codec.Widths)
		}

		fmt.Fprintln(cmd.OutOrStdout(), codec.Format(codec.Encode(fields)))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(encodeCmd)
}
