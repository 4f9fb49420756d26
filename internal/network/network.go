package network

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"contagion-lab/internal/domain"
)

// rowSumEpsilon bounds floating error in relative-liability row sums.
const rowSumEpsilon = 1e-9

// Network is an interbank obligation graph with its balance-sheet vectors.
//
// The obligation matrix L (L[i][j] = amount bank i owes bank j) and the
// relative-liabilities matrix R are fixed at generation and shared by clones.
// Outside assets, banks, net worth and the default vector are owned by the
// network and mutated by shock application and clearing.
type Network struct {
	Policy   domain.Policy
	Size     int
	CoreSize int // banks [0, CoreSize) are core; 0 unless core-periphery

	obligations *mat.Dense
	relative    *mat.Dense

	OutsideAsset     []float64
	OutsideLiability []float64
	DuePayments      []float64 // row-sum of L + outside liability
	NetWorth         []float64
	Vulnerability    []float64 // sums to 1 when any is positive
	DefaultVector    []bool
	Banks            []Bank

	SumOutsideAssets float64
}

// build derives every vector of a network from its obligations and outside
// balance-sheet amounts.
func build(policy domain.Policy, obligations *mat.Dense, outsideAsset, outsideLiability []float64) *Network {
	n, _ := obligations.Dims()
	owed := rowSums(obligations)
	owedTo := colSums(obligations)

	due := make([]float64, n)
	floats.AddTo(due, owed, outsideLiability)

	relative := mat.NewDense(n, n, nil)
	for i := range n {
		if due[i] == 0 {
			continue
		}
		for j := range n {
			if v := obligations.At(i, j); v != 0 {
				relative.Set(i, j, v/due[i])
			}
		}
	}

	net := &Network{
		Policy:           policy,
		Size:             n,
		obligations:      obligations,
		relative:         relative,
		OutsideAsset:     outsideAsset,
		OutsideLiability: outsideLiability,
		DuePayments:      due,
		NetWorth:         make([]float64, n),
		Vulnerability:    vulnerabilities(due, outsideLiability),
		DefaultVector:    make([]bool, n),
		Banks:            make([]Bank, n),
	}
	for i := range n {
		net.Banks[i] = NewBank(outsideAsset[i], owedTo[i], outsideLiability[i], owed[i])
		net.NetWorth[i] = net.Banks[i].Balance()
	}
	net.RefreshDefaults()
	net.SumOutsideAssets = floats.Sum(outsideAsset)
	return net
}

// vulnerabilities returns (due - outsideLiability) / due per bank,
// normalized to sum to 1 when the sum is positive.
func vulnerabilities(due, outsideLiability []float64) []float64 {
	v := make([]float64, len(due))
	for i := range due {
		if due[i] == 0 {
			continue
		}
		v[i] = (due[i] - outsideLiability[i]) / due[i]
	}
	if sum := floats.Sum(v); sum > 0 {
		floats.Scale(1/sum, v)
	}
	return v
}

func rowSums(m *mat.Dense) []float64 {
	n, _ := m.Dims()
	out := make([]float64, n)
	for i := range n {
		out[i] = floats.Sum(m.RawRowView(i))
	}
	return out
}

func colSums(m *mat.Dense) []float64 {
	_, c := m.Dims()
	out := make([]float64, c)
	for j := range c {
		out[j] = mat.Sum(m.ColView(j))
	}
	return out
}

// Obligation returns L[i][j], the amount bank i owes bank j.
func (n *Network) Obligation(i, j int) float64 {
	return n.obligations.At(i, j)
}

// RelativeLiability returns R[i][j].
func (n *Network) RelativeLiability(i, j int) float64 {
	return n.relative.At(i, j)
}

// Obligations returns a read-only view of L.
func (n *Network) Obligations() mat.Matrix {
	return n.obligations
}

// RelativeLiabilities returns a read-only view of R.
func (n *Network) RelativeLiabilities() mat.Matrix {
	return n.relative
}

// Owed returns Σ_j L[i][j] for every bank.
func (n *Network) Owed() []float64 {
	return rowSums(n.obligations)
}

// OwedTo returns Σ_j L[j][i] for every bank.
func (n *Network) OwedTo() []float64 {
	return colSums(n.obligations)
}

// IsCore reports whether bank i belongs to the core.
func (n *Network) IsCore(i int) bool {
	return i < n.CoreSize
}

// RefreshDefaults recomputes the default vector from bank balances and
// returns the number of defaulted banks.
func (n *Network) RefreshDefaults() int {
	count := 0
	for i, b := range n.Banks {
		n.DefaultVector[i] = b.Defaulted()
		if n.DefaultVector[i] {
			count++
		}
	}
	return count
}

// RefreshNetWorth sets net worth to each bank's current balance.
func (n *Network) RefreshNetWorth() {
	for i, b := range n.Banks {
		n.NetWorth[i] = b.Balance()
	}
}

// DefaultCount returns the number of true entries of the default vector.
func (n *Network) DefaultCount() int {
	count := 0
	for _, d := range n.DefaultVector {
		if d {
			count++
		}
	}
	return count
}

// Clone returns a deep copy of all mutable state.
// The immutable matrices are shared.
func (n *Network) Clone() *Network {
	banks := make([]Bank, len(n.Banks))
	copy(banks, n.Banks)
	defaults := make([]bool, len(n.DefaultVector))
	copy(defaults, n.DefaultVector)

	return &Network{
		Policy:           n.Policy,
		Size:             n.Size,
		CoreSize:         n.CoreSize,
		obligations:      n.obligations,
		relative:         n.relative,
		OutsideAsset:     cloneFloats(n.OutsideAsset),
		OutsideLiability: cloneFloats(n.OutsideLiability),
		DuePayments:      cloneFloats(n.DuePayments),
		NetWorth:         cloneFloats(n.NetWorth),
		Vulnerability:    cloneFloats(n.Vulnerability),
		DefaultVector:    defaults,
		Banks:            banks,
		SumOutsideAssets: n.SumOutsideAssets,
	}
}

func cloneFloats(src []float64) []float64 {
	dst := make([]float64, len(src))
	copy(dst, src)
	return dst
}

// Links lists the non-zero obligations in row-major order.
func (n *Network) Links() []domain.Link {
	var links []domain.Link
	for i := range n.Size {
		for j, v := range n.obligations.RawRowView(i) {
			if v != 0 {
				links = append(links, domain.Link{From: i, To: j, Amount: v})
			}
		}
	}
	return links
}

// Snapshot returns a serializable view of the current state.
func (n *Network) Snapshot() domain.NetworkSnapshot {
	nodes := make([]domain.NodeSnapshot, n.Size)
	for i, b := range n.Banks {
		nodes[i] = domain.NodeSnapshot{
			Index:              i,
			Core:               n.IsCore(i),
			OutsideAsset:       b.OutsideAsset,
			InterbankAsset:     b.InterbankAsset,
			OutsideLiability:   b.OutsideLiability,
			InterbankLiability: b.InterbankLiability,
			Balance:            b.Balance(),
			Defaulted:          n.DefaultVector[i],
			Vulnerability:      n.Vulnerability[i],
		}
	}
	return domain.NetworkSnapshot{
		Policy:           n.Policy,
		Size:             n.Size,
		SumOutsideAssets: n.SumOutsideAssets,
		Nodes:            nodes,
		Links:            n.Links(),
	}
}

// Validate checks the structural invariants of a generated network.
func (n *Network) Validate() error {
	owed := n.Owed()
	for i := range n.Size {
		if n.obligations.At(i, i) != 0 {
			return fmt.Errorf("bank %d: non-zero self obligation", i)
		}
		if due := owed[i] + n.OutsideLiability[i]; due != n.DuePayments[i] {
			return fmt.Errorf("bank %d: due payments %v, want %v", i, n.DuePayments[i], due)
		}
		row := n.relative.RawRowView(i)
		for j, v := range row {
			if v < 0 || n.obligations.At(i, j) < 0 {
				return fmt.Errorf("bank %d: negative entry at column %d", i, j)
			}
			if n.DuePayments[i] == 0 && v != 0 {
				return fmt.Errorf("bank %d: relative liability %v with zero due payments", i, v)
			}
		}
		if sum := floats.Sum(row); sum > 1+rowSumEpsilon {
			return fmt.Errorf("bank %d: relative liabilities sum to %v", i, sum)
		}
		if n.OutsideAsset[i] < 0 || math.IsNaN(n.OutsideAsset[i]) {
			return fmt.Errorf("bank %d: invalid outside asset %v", i, n.OutsideAsset[i])
		}
	}
	return nil
}
