package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Haor/vrc-nexus/internal/output"
)

var (
	communitiesMembers int

	communitiesCmd = &cobra.Command{
		Use:   "communities",
		Short: "List the communities in your mutual-friend graph",
		Long: `Detect communities among friends that share mutual friends and list each
one with its strongest members.

Friends without mutual-friend links belong to no community and are not
listed. Detection runs several seeded passes and keeps the partition with
the highest modularity.`,
		Example: `  # Communities with at most 5 members shown each
  vrcnexus communities --win --members 5

  # Louvain at a fixed resolution
  vrcnexus communities --win --algorithm louvain --resolution 1.2`,
		RunE: runCommunities,
	}
)

func init() {
	addAnalysisFlags(communitiesCmd)
	communitiesCmd.Flags().IntVar(&communitiesMembers, "members", 10, "members to show per community (0 shows all)")

	RootCmd.AddCommand(communitiesCmd)
}

func runCommunities(cmd *cobra.Command, args []string) error {
	if communitiesMembers < 0 {
		return fmt.Errorf("invalid --members %d (must be >= 0)", communitiesMembers)
	}

	a, err := runAnalysis(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	m := a.Report.Meta
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s · γ=%.2f · Q=%.3f · %d of %d friends linked\n\n",
		m.Algorithm, m.Resolution, m.Modularity, m.GraphNodes, m.FriendCount)
	fmt.Fprint(out, output.RenderCommunities(a.Report, communitiesMembers))
	return nil
}
