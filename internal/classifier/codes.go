// =============================================================================
// FeliCa Ledger - Code Tables
// =============================================================================
//
// Byte to category tables for the two code spaces found in history records:
// the machine type (byte 0, the terminal that wrote the record) and the
// process type (byte 1, what the terminal did).
//
// =============================================================================

package classifier

import "fmt"

// =============================================================================
// MACHINE TYPES
// =============================================================================

// MachineCategory groups machine-type bytes by terminal family.
type MachineCategory int

const (
	MachineUnknown MachineCategory = iota
	MachineGate
	MachineBus
	MachineVending
	MachineCharge
	MachineRetail
	MachineMobile
)

var machineCategories = map[byte]MachineCategory{
	0x03: MachineGate,
	0x16: MachineGate,
	0x17: MachineGate,

	0x05: MachineBus,

	0x07: MachineVending,

	0x08: MachineCharge,
	0x09: MachineCharge,
	0x13: MachineCharge,
	0x14: MachineCharge,
	0x15: MachineCharge,
	0x1C: MachineCharge,
	0x1D: MachineCharge,
	0x46: MachineCharge,

	0x1F: MachineRetail,
	0xC7: MachineRetail,
	0xC8: MachineRetail,
	0xC9: MachineRetail,
	0xCA: MachineRetail,
	0xCB: MachineRetail,

	0x12: MachineMobile,
}

// MachineCategoryOf returns the category of a machine-type byte.
func MachineCategoryOf(code byte) MachineCategory {
	return machineCategories[code]
}

// MachineTitle returns a human readable terminal name for a machine-type byte.
func MachineTitle(code byte) string {
	switch MachineCategoryOf(code) {
	case MachineGate:
		return "Ticket Gate"
	case MachineBus:
		return "Bus Reader"
	case MachineVending:
		return "Ticket Machine"
	case MachineCharge:
		return "Charge Machine"
	case MachineRetail:
		return "Shop Terminal"
	case MachineMobile:
		return "Mobile Device"
	default:
		return fmt.Sprintf("Unknown (0x%02X)", code)
	}
}

// =============================================================================
// PROCESS TYPES
// =============================================================================

// ProcessCategory groups process-type bytes by operation.
type ProcessCategory int

const (
	ProcessUnknown ProcessCategory = iota
	ProcessFarePayment
	ProcessCharge
	ProcessTicketPurchase
	ProcessAdjustment
	ProcessBusFare
	ProcessRetail
)

var processCategories = map[byte]ProcessCategory{
	0x01: ProcessFarePayment,
	0x02: ProcessCharge,
	0x03: ProcessTicketPurchase,
	0x04: ProcessAdjustment,
	0x05: ProcessBusFare,
	0x46: ProcessRetail,
	0x4B: ProcessRetail,
}

// ProcessCategoryOf returns the category of a process-type byte.
func ProcessCategoryOf(code byte) ProcessCategory {
	return processCategories[code]
}

// ProcessTitle returns a human readable operation name for a process-type byte.
func ProcessTitle(code byte) string {
	switch ProcessCategoryOf(code) {
	case ProcessFarePayment:
		return "Train Fare"
	case ProcessCharge:
		return "Charge"
	case ProcessTicketPurchase:
		return "Ticket Purchase"
	case ProcessAdjustment:
		return "Fare Adjustment"
	case ProcessBusFare:
		return "Bus Fare"
	case ProcessRetail:
		return "Shop"
	default:
		return "Unknown"
	}
}
