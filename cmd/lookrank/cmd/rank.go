package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matheusschuckar/look-pro/core"
	"github.com/matheusschuckar/look-pro/engine"
	"github.com/matheusschuckar/look-pro/filter"
	"github.com/matheusschuckar/look-pro/prefs"
)

var (
	rankUser      string
	rankSeed      uint32
	rankLimit     int
	rankQuery     string
	rankExplore   string
	bumpWeight    float64
	decayHalfLife float64
)

var rankCmd = &cobra.Command{
	Use:   "rank [candidates.json]",
	Short: "对 JSON 候选列表排序",
	Long: `从文件（缺省为标准输入）读取候选商品 JSON 数组，按用户偏好排序后输出到标准输出。

Examples:
  lookrank rank --user ana feed.json
  cat feed.json | lookrank rank --user ana --limit 20 --explore off`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRank,
}

var bumpCmd = &cobra.Command{
	Use:   "bump <facet> <key>",
	Short: "累加某个维度的偏好",
	Long:  `facet 为 cat、store、gender、size、price、eta、product 之一。`,
	Args:  cobra.ExactArgs(2),
	RunE:  runBump,
}

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "打印用户偏好文档（已按当前时间衰减）",
	Args:  cobra.NoArgs,
	RunE:  runPrefs,
}

var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "按指定半衰期衰减全部偏好",
	Args:  cobra.NoArgs,
	RunE:  runDecay,
}

func init() {
	for _, c := range []*cobra.Command{rankCmd, bumpCmd, prefsCmd, decayCmd} {
		c.Flags().StringVarP(&rankUser, "user", "u", "local", "user whose preferences are used")
	}
	rankCmd.Flags().Uint32Var(&rankSeed, "seed", 0, "session seed (0 keeps a random one)")
	rankCmd.Flags().IntVar(&rankLimit, "limit", 0, "keep only the first N items")
	rankCmd.Flags().StringVarP(&rankQuery, "query", "q", "", "free-text filter")
	rankCmd.Flags().StringVar(&rankExplore, "explore", "auto", "exploration mode: auto, on or off")
	bumpCmd.Flags().Float64Var(&bumpWeight, "weight", 0, "increment (0 uses the facet default)")
	decayCmd.Flags().Float64Var(&decayHalfLife, "half-life", prefs.DefaultHalfLifeDays, "half-life in days")
}

func runRank(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	var cands []*core.Candidate
	if err := json.NewDecoder(in).Decode(&cands); err != nil {
		return fmt.Errorf("decode candidates: %w", err)
	}

	e, closeFn, err := userEngine(rankUser)
	if err != nil {
		return err
	}
	defer closeFn()
	if rankSeed != 0 {
		e.Reseed(rankSeed)
	}

	opts := []engine.RankOption{engine.WithUser(rankUser, "cli"), engine.WithLimit(rankLimit)}
	if rankQuery != "" {
		opts = append(opts, engine.WithCriteria(&filter.Criteria{Query: rankQuery}))
	}
	switch rankExplore {
	case "on":
		opts = append(opts, engine.WithExplore(true))
	case "off":
		opts = append(opts, engine.WithExplore(false))
	case "auto":
	default:
		return fmt.Errorf("invalid --explore %q", rankExplore)
	}

	ranked, err := e.Rank(cmd.Context(), cands, opts...)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(ranked)
}

func runBump(cmd *cobra.Command, args []string) error {
	f, ok := core.ParseFacet(args[0])
	if !ok {
		return fmt.Errorf("unknown facet %q", args[0])
	}
	e, closeFn, err := userEngine(rankUser)
	if err != nil {
		return err
	}
	defer closeFn()

	var weight []float64
	if bumpWeight > 0 {
		weight = append(weight, bumpWeight)
	}
	return e.Bump(cmd.Context(), f, args[1], weight...)
}

func runPrefs(cmd *cobra.Command, args []string) error {
	e, closeFn, err := userEngine(rankUser)
	if err != nil {
		return err
	}
	defer closeFn()

	raw, err := prefs.Encode(e.GetPreferences(cmd.Context()))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	return err
}

func runDecay(cmd *cobra.Command, args []string) error {
	e, closeFn, err := userEngine(rankUser)
	if err != nil {
		return err
	}
	defer closeFn()
	return e.DecayAll(cmd.Context(), decayHalfLife)
}
