// Package inventorytable renders collected account resources as console tables.
package inventorytable

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/thirukguru/aws-posture/model"
	"github.com/thirukguru/aws-posture/service/exposure"
	"github.com/thirukguru/aws-posture/service/snapshot"
)

const never = "never"

// DrawInventoryTable renders the inventory to stdout.
func DrawInventoryTable(input model.RenderInventoryInput) {
	drawInventory(os.Stdout, input)
}

func drawInventory(w io.Writer, input model.RenderInventoryInput) {
	fmt.Fprintf(w, "\n📋 AWS Posture Inventory - Account: %s\n", input.AccountID)
	fmt.Fprintf(w, "   %d users, %d groups, %d access keys, %d ingress rules, %d instances\n",
		len(input.Identities), len(input.Groups), len(input.AccessKeys),
		len(input.SecurityGroupRules), len(input.Instances))

	if len(input.Identities) > 0 {
		drawIdentities(w, input.Identities)
	}
	if len(input.Groups) > 0 {
		drawGroups(w, input.Groups, input.AdminGroups)
	}
	if len(input.AccessKeys) > 0 {
		drawAccessKeys(w, input.AccessKeys)
	}
	if len(input.SecurityGroupRules) > 0 {
		drawRules(w, input.SecurityGroupRules)
	}
	if len(input.Instances) > 0 {
		drawInstances(w, input.Instances)
	}
}

func drawIdentities(w io.Writer, ids []snapshot.Identity) {
	fmt.Fprintln(w, "\n👤 IAM Users")

	t := newTable(w)
	t.AppendHeader(table.Row{"User", "MFA", "Password Changed", "Policies", "Groups"})
	for _, id := range ids {
		mfa := text.FgRed.Sprint("✗")
		if id.HasMFA {
			mfa = text.FgGreen.Sprint("✓")
		}
		t.AppendRow(table.Row{
			id.Name,
			mfa,
			formatDate(id.PasswordLastChanged),
			strings.Join(id.AttachedPolicyNames, ", "),
			strings.Join(id.GroupNames, ", "),
		})
	}
	t.Render()
}

func drawGroups(w io.Writer, groups []snapshot.Group, adminGroups []string) {
	fmt.Fprintln(w, "\n👥 IAM Groups")

	admin := make(map[string]bool, len(adminGroups))
	for _, g := range adminGroups {
		admin[g] = true
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Group", "Policies", "Admin"})
	for _, g := range groups {
		flag := ""
		if admin[g.Name] {
			flag = text.FgHiRed.Sprint("yes")
		}
		t.AppendRow(table.Row{g.Name, strings.Join(g.AttachedPolicyNames, ", "), flag})
	}
	t.Render()
}

func drawAccessKeys(w io.Writer, keys []snapshot.AccessKey) {
	fmt.Fprintln(w, "\n🗝️  Access Keys")

	t := newTable(w)
	t.AppendHeader(table.Row{"Owner", "Access Key ID", "Status", "Created", "Last Used"})
	for _, k := range keys {
		created := k.CreatedAt
		t.AppendRow(table.Row{k.Owner, k.KeyID, string(k.Status), formatDate(&created), formatDate(k.LastUsedAt)})
	}
	t.Render()
}

func drawRules(w io.Writer, rules []exposure.SecurityGroupRule) {
	fmt.Fprintln(w, "\n🧱 Security Group Ingress Rules")

	t := newTable(w)
	t.AppendHeader(table.Row{"Group", "Name", "Protocol", "Ports", "Sources"})
	for _, r := range rules {
		t.AppendRow(table.Row{r.GroupID, r.GroupName, r.Protocol, formatPorts(r.FromPort, r.ToPort), strings.Join(r.CIDRRanges, ", ")})
	}
	t.Render()
}

func drawInstances(w io.Writer, instances []exposure.Instance) {
	fmt.Fprintln(w, "\n🖥️  EC2 Instances")

	t := newTable(w)
	t.AppendHeader(table.Row{"Instance", "State", "Public IP", "Key Pair"})
	for _, i := range instances {
		t.AppendRow(table.Row{i.InstanceID, i.State, i.PublicIP, i.KeyPairName})
	}
	t.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return never
	}
	return t.UTC().Format("2006-01-02")
}

func formatPorts(from, to *int32) string {
	switch {
	case from == nil && to == nil:
		return "all"
	case from == nil:
		return fmt.Sprintf("0-%d", *to)
	case to == nil:
		return fmt.Sprintf("%d-65535", *from)
	case *from == *to:
		return fmt.Sprintf("%d", *from)
	default:
		return fmt.Sprintf("%d-%d", *from, *to)
	}
}
